package main

import (
	"flag"
	"log"
	"net/http"

	"procurement-tracker/internal/auth"
	"procurement-tracker/internal/config"
	"procurement-tracker/internal/handlers"
	"procurement-tracker/internal/storage"
	"procurement-tracker/internal/tracker"
)

func main() {
	configFile := flag.String("config", "", "path to an external config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	store, err := storage.NewStore(cfg.Storage.Path)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer store.Close()

	trk, err := tracker.New(store)
	if err != nil {
		log.Fatalf("load collections: %v", err)
	}

	if err := bootstrapAdmin(trk, cfg); err != nil {
		log.Fatalf("bootstrap admin user: %v", err)
	}

	h := handlers.NewHandlers(trk, cfg.Web.Templates, cfg.Server.SecureCookie)
	mux := setupRouter(h, cfg.Web.Static)

	log.Printf("procurement tracker listening on %s", cfg.Server.Port)
	if err := http.ListenAndServe(cfg.Server.Port, mux); err != nil {
		log.Fatalf("server: %v", err)
	}
}

// bootstrapAdmin seeds a first user from config when the users collection
// is empty, so a fresh deployment has a working login.
func bootstrapAdmin(trk *tracker.Tracker, cfg *config.Config) error {
	if cfg.Admin.Email == "" || cfg.Admin.Password == "" {
		return nil
	}
	if trk.UserCount() > 0 {
		return nil
	}

	hash, err := auth.HashPassword(cfg.Admin.Password)
	if err != nil {
		return err
	}
	name := cfg.Admin.Name
	if name == "" {
		name = "Administrador"
	}
	user, err := trk.AddUser(name, cfg.Admin.Email, hash)
	if err != nil {
		return err
	}
	log.Printf("seeded admin user %s (id %d)", user.Email, user.ID)
	return nil
}

func setupRouter(h *handlers.Handlers, staticDir string) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))

	mux.HandleFunc("GET /login", h.LoginForm)
	mux.HandleFunc("POST /login", h.Login)
	mux.HandleFunc("POST /logout", h.Logout)

	mux.Handle("GET /{$}", http.RedirectHandler("/dashboard", http.StatusFound))

	protected := func(fn http.HandlerFunc) http.Handler {
		return h.AuthMiddleware(fn)
	}

	mux.Handle("GET /dashboard", protected(h.DashboardTab))

	mux.Handle("GET /purchases", protected(h.PurchasesTab))
	mux.Handle("POST /purchases", protected(h.CreatePurchase))
	mux.Handle("DELETE /purchases/{id}", protected(h.DeletePurchase))
	mux.Handle("POST /purchases/{id}/status", protected(h.CyclePurchaseStatus))

	mux.Handle("GET /suppliers", protected(h.SuppliersTab))
	mux.Handle("POST /suppliers", protected(h.CreateSupplier))
	mux.Handle("DELETE /suppliers/{id}", protected(h.DeleteSupplier))

	mux.Handle("GET /users", protected(h.UsersTab))
	mux.Handle("DELETE /users/{id}", protected(h.DeleteUser))

	mux.Handle("GET /account", protected(h.AccountTab))
	mux.Handle("POST /account/password", protected(h.ChangePassword))

	return mux
}
