package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"procurement-tracker/internal/models"
	"procurement-tracker/internal/tracker"
)

// Page carries the header fields shared by every view.
type Page struct {
	UserName string
	Active   string
}

func (h *Handlers) page(active string) Page {
	p := Page{Active: active}
	if session := h.tracker.Session(); session != nil {
		p.UserName = session.DisplayName()
	}
	return p
}

// DashboardViewModel is the data passed to the dashboard tab template.
type DashboardViewModel struct {
	Page
	tracker.Dashboard
}

// DashboardTab renders the overview counters. Switching to any tab re-runs
// these queries, so the counters always reflect the live collections.
func (h *Handlers) DashboardTab(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "dashboard.html", DashboardViewModel{
		Page:      h.page("dashboard"),
		Dashboard: h.tracker.Dashboard(),
	})
}

// SuppliersViewModel is the data passed to the suppliers tab template.
type SuppliersViewModel struct {
	Page
	Suppliers []models.Supplier
	Error     string
}

func (h *Handlers) suppliersView() SuppliersViewModel {
	return SuppliersViewModel{
		Page:      h.page("suppliers"),
		Suppliers: h.tracker.Suppliers(),
	}
}

// SuppliersTab renders the supplier list in insertion order plus the add
// form.
func (h *Handlers) SuppliersTab(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "suppliers.html", h.suppliersView())
}

// CreateSupplier handles the add-supplier form.
func (h *Handlers) CreateSupplier(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}

	_, err := h.tracker.AddSupplier(r.FormValue("nome"))
	vm := h.suppliersView()
	if msg := userMessage(err); msg != "" {
		vm.Error = msg
	} else if err != nil {
		log.Printf("AddSupplier error: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.render(w, r, "suppliers.html", vm)
}

// DeleteSupplier removes a supplier row. Purchases keep the supplier name.
func (h *Handlers) DeleteSupplier(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid id", http.StatusBadRequest)
		return
	}
	if err := h.tracker.RemoveSupplier(id); err != nil {
		log.Printf("RemoveSupplier error: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.render(w, r, "suppliers.html", h.suppliersView())
}

// PurchaseItem is one row of the purchase list, formatted for display.
type PurchaseItem struct {
	ID          int64
	Description string
	CreatedAt   string
	Supplier    string
	Amount      string
	Category    string
	Status      models.Status
}

// PurchasesViewModel is the data passed to the purchases tab template.
type PurchasesViewModel struct {
	Page
	Suppliers []models.Supplier
	Purchases []PurchaseItem
	Error     string
}

func (h *Handlers) purchasesView() PurchasesViewModel {
	purchases := h.tracker.Purchases()

	// Most recent first.
	items := make([]PurchaseItem, 0, len(purchases))
	for i := len(purchases) - 1; i >= 0; i-- {
		p := purchases[i]
		items = append(items, PurchaseItem{
			ID:          p.ID,
			Description: p.Description,
			CreatedAt:   p.CreatedAt.Local().Format("02/01/2006, 15:04:05"),
			Supplier:    p.SupplierName,
			Amount:      formatBRL(p.Amount),
			Category:    p.Category,
			Status:      p.Status,
		})
	}

	return PurchasesViewModel{
		Page:      h.page("purchases"),
		Suppliers: h.tracker.Suppliers(),
		Purchases: items,
	}
}

// PurchasesTab renders the purchase list and the registration form with the
// supplier selector.
func (h *Handlers) PurchasesTab(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "purchases.html", h.purchasesView())
}

// CreatePurchase handles the register-purchase form.
func (h *Handlers) CreatePurchase(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}

	_, err := h.tracker.AddPurchase(
		r.FormValue("fornecedor"),
		r.FormValue("valor"),
		r.FormValue("tipo"),
		r.FormValue("descricao"),
		models.Status(r.FormValue("status")),
	)
	vm := h.purchasesView()
	if msg := userMessage(err); msg != "" {
		vm.Error = msg
	} else if err != nil {
		log.Printf("AddPurchase error: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.render(w, r, "purchases.html", vm)
}

// DeletePurchase removes a purchase row. The browser-side confirm dialog
// has already gated the request.
func (h *Handlers) DeletePurchase(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid id", http.StatusBadRequest)
		return
	}
	if err := h.tracker.RemovePurchase(id, tracker.AlwaysConfirm); err != nil && !errors.Is(err, tracker.ErrDeclined) {
		log.Printf("RemovePurchase error: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.render(w, r, "purchases.html", h.purchasesView())
}

// CyclePurchaseStatus advances one purchase through the status cycle.
func (h *Handlers) CyclePurchaseStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid id", http.StatusBadRequest)
		return
	}
	if err := h.tracker.CycleStatus(id); err != nil {
		log.Printf("CycleStatus error: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.render(w, r, "purchases.html", h.purchasesView())
}

// UsersViewModel is the data passed to the users tab template.
type UsersViewModel struct {
	Page
	Users []models.User
}

func (h *Handlers) usersView() UsersViewModel {
	return UsersViewModel{
		Page:  h.page("users"),
		Users: h.tracker.Users(),
	}
}

// UsersTab renders the registered users.
func (h *Handlers) UsersTab(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "users.html", h.usersView())
}

// DeleteUser removes a user row. The browser-side confirm dialog has
// already gated the request.
func (h *Handlers) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid id", http.StatusBadRequest)
		return
	}
	if err := h.tracker.RemoveUser(id, tracker.AlwaysConfirm); err != nil && !errors.Is(err, tracker.ErrDeclined) {
		log.Printf("RemoveUser error: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.render(w, r, "users.html", h.usersView())
}

// AccountViewModel is the data passed to the account tab template.
type AccountViewModel struct {
	Page
	Email   string
	Error   string
	Success string
}

func (h *Handlers) accountView() AccountViewModel {
	vm := AccountViewModel{Page: h.page("account")}
	if session := h.tracker.Session(); session != nil {
		vm.Email = session.Email
	}
	return vm
}

// AccountTab renders the password-change form.
func (h *Handlers) AccountTab(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "account.html", h.accountView())
}

// ChangePassword handles the password-change form for the authenticated
// email.
func (h *Handlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	session := h.tracker.Session()
	if session == nil {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}

	err := h.tracker.ChangePassword(session.Email, r.FormValue("oldPass"), r.FormValue("newPass"))
	vm := h.accountView()
	switch {
	case userMessage(err) != "":
		vm.Error = userMessage(err)
	case err != nil:
		log.Printf("ChangePassword error: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	default:
		vm.Success = "Senha alterada com sucesso"
	}
	h.render(w, r, "account.html", vm)
}

// formatBRL renders an amount the way the browser did with the pt-BR
// locale: "R$ 1.234,56".
func formatBRL(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	intPart, frac, _ := strings.Cut(s, ".")

	sign := ""
	if strings.HasPrefix(intPart, "-") {
		sign = "-"
		intPart = intPart[1:]
	}

	var groups []string
	for len(intPart) > 3 {
		groups = append([]string{intPart[len(intPart)-3:]}, groups...)
		intPart = intPart[:len(intPart)-3]
	}
	groups = append([]string{intPart}, groups...)

	return "R$ " + sign + strings.Join(groups, ".") + "," + frac
}
