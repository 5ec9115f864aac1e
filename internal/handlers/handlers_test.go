package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strconv"
	"strings"
	"testing"

	"procurement-tracker/internal/auth"
	"procurement-tracker/internal/models"
	"procurement-tracker/internal/storage"
	"procurement-tracker/internal/tracker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const templateDir = "../../web/templates"

func newTestHandlers(t *testing.T) (*Handlers, *tracker.Tracker) {
	t.Helper()

	if _, err := os.Stat(templateDir); os.IsNotExist(err) {
		t.Skip("Template directory not found, skipping handler test")
	}

	store, err := storage.NewStore(":memory:")
	require.NoError(t, err, "failed to create store")
	t.Cleanup(func() { store.Close() })

	trk, err := tracker.New(store)
	require.NoError(t, err, "failed to create tracker")

	return NewHandlers(trk, templateDir, false), trk
}

func seedUser(t *testing.T, trk *tracker.Tracker, name, email, password string) models.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)
	user, err := trk.AddUser(name, email, hash)
	require.NoError(t, err)
	return user
}

// signIn performs the login form submission and returns the session cookie.
func signIn(t *testing.T, h *Handlers, email, password string) *http.Cookie {
	t.Helper()

	form := url.Values{"email": {email}, "password": {password}}
	req := httptest.NewRequest("POST", "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()

	h.Login(w, req)
	require.Equal(t, http.StatusFound, w.Code, "login should redirect")
	require.Equal(t, "/dashboard", w.Header().Get("Location"))

	for _, c := range w.Result().Cookies() {
		if c.Name == SessionCookieName && c.Value != "" {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func postForm(path string, form url.Values, cookie *http.Cookie) *http.Request {
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return req
}

func TestAuthMiddlewareRedirectsWhenSignedOut(t *testing.T) {
	h, _ := newTestHandlers(t)
	guarded := h.AuthMiddleware(http.HandlerFunc(h.DashboardTab))

	req := httptest.NewRequest("GET", "/dashboard", http.NoBody)
	w := httptest.NewRecorder()
	guarded.ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestAuthMiddlewareRejectsStaleCookie(t *testing.T) {
	h, trk := newTestHandlers(t)
	seedUser(t, trk, "Maria", "maria@example.com", "secret")
	cookie := signIn(t, h, "maria@example.com", "secret")

	// Sign out elsewhere: the singleton is gone, the cookie is stale.
	require.NoError(t, trk.SignOut())

	guarded := h.AuthMiddleware(http.HandlerFunc(h.DashboardTab))
	req := httptest.NewRequest("GET", "/dashboard", http.NoBody)
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	guarded.ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestLoginWrongCredentials(t *testing.T) {
	h, trk := newTestHandlers(t)
	seedUser(t, trk, "Maria", "maria@example.com", "secret")

	req := postForm("/login", url.Values{"email": {"maria@example.com"}, "password": {"wrong"}}, nil)
	w := httptest.NewRecorder()
	h.Login(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Email ou senha inválidos")
	assert.Nil(t, trk.Session(), "failed login must not create a session")
}

func TestLoginSuccessShowsUserName(t *testing.T) {
	h, trk := newTestHandlers(t)
	seedUser(t, trk, "Maria", "maria@example.com", "secret")
	cookie := signIn(t, h, "maria@example.com", "secret")

	req := httptest.NewRequest("GET", "/dashboard", http.NoBody)
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	h.AuthMiddleware(http.HandlerFunc(h.DashboardTab)).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Maria")
	assert.Contains(t, w.Body.String(), `id="totalCompras"`)
}

func TestLogoutClearsSession(t *testing.T) {
	h, trk := newTestHandlers(t)
	seedUser(t, trk, "Maria", "maria@example.com", "secret")
	cookie := signIn(t, h, "maria@example.com", "secret")

	req := httptest.NewRequest("POST", "/logout", http.NoBody)
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	h.Logout(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
	assert.Nil(t, trk.Session())
}

func TestCreateSupplierRendersList(t *testing.T) {
	h, trk := newTestHandlers(t)

	req := postForm("/suppliers", url.Values{"nome": {"Acme"}}, nil)
	w := httptest.NewRecorder()
	h.CreateSupplier(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Acme")
	assert.Len(t, trk.Suppliers(), 1)
}

func TestCreateSupplierEmptyNameShowsNotice(t *testing.T) {
	h, trk := newTestHandlers(t)

	req := postForm("/suppliers", url.Values{"nome": {"   "}}, nil)
	w := httptest.NewRecorder()
	h.CreateSupplier(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Digite o nome do fornecedor")
	assert.Empty(t, trk.Suppliers())
}

func TestDeleteSupplier(t *testing.T) {
	h, trk := newTestHandlers(t)
	supplier, err := trk.AddSupplier("Acme")
	require.NoError(t, err)

	req := httptest.NewRequest("DELETE", "/suppliers/1", http.NoBody)
	req.SetPathValue("id", "1")
	w := httptest.NewRecorder()
	h.DeleteSupplier(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, trk.Suppliers(), 1, "unknown id is a no-op")

	req = httptest.NewRequest("DELETE", "/suppliers/x", http.NoBody)
	req.SetPathValue("id", strconv.FormatInt(supplier.ID, 10))
	w = httptest.NewRecorder()
	h.DeleteSupplier(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, trk.Suppliers())
}

func TestPurchasesEmptyPlaceholder(t *testing.T) {
	h, _ := newTestHandlers(t)

	req := httptest.NewRequest("GET", "/purchases", http.NoBody)
	w := httptest.NewRecorder()
	h.PurchasesTab(w, req)

	assert.Contains(t, w.Body.String(), "Nenhuma compra registrada")
}

func TestCreatePurchaseFormatsCurrency(t *testing.T) {
	h, trk := newTestHandlers(t)
	_, err := trk.AddSupplier("Acme")
	require.NoError(t, err)

	form := url.Values{
		"fornecedor": {"Acme"},
		"valor":      {"1234,56"},
		"tipo":       {"servico"},
		"descricao":  {"manutencao"},
		"status":     {"pendente"},
	}
	w := httptest.NewRecorder()
	h.CreatePurchase(w, postForm("/purchases", form, nil))

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "R$ 1.234,56")
	assert.Contains(t, body, "manutencao")
	require.Len(t, trk.Purchases(), 1)
	assert.Equal(t, 1234.56, trk.Purchases()[0].Amount)
}

func TestCreatePurchaseInvalidAmountShowsNotice(t *testing.T) {
	h, trk := newTestHandlers(t)

	form := url.Values{
		"fornecedor": {"Acme"},
		"valor":      {"0"},
		"tipo":       {"produto"},
		"descricao":  {"x"},
		"status":     {"pendente"},
	}
	w := httptest.NewRecorder()
	h.CreatePurchase(w, postForm("/purchases", form, nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Informe um valor válido")
	assert.Empty(t, trk.Purchases())
}

func TestPurchaseListMostRecentFirst(t *testing.T) {
	h, trk := newTestHandlers(t)
	_, err := trk.AddPurchase("Acme", "10", "produto", "primeira", models.StatusPending)
	require.NoError(t, err)
	_, err = trk.AddPurchase("Acme", "20", "produto", "segunda", models.StatusPending)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/purchases", http.NoBody)
	w := httptest.NewRecorder()
	h.PurchasesTab(w, req)

	body := w.Body.String()
	assert.Less(t, strings.Index(body, "segunda"), strings.Index(body, "primeira"),
		"most recent purchase should render first")
}

func TestCyclePurchaseStatus(t *testing.T) {
	h, trk := newTestHandlers(t)
	purchase, err := trk.AddPurchase("Acme", "10", "produto", "x", models.StatusPending)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/purchases/0/status", http.NoBody)
	req.SetPathValue("id", strconv.FormatInt(purchase.ID, 10))
	w := httptest.NewRecorder()
	h.CyclePurchaseStatus(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.StatusSent, trk.Purchases()[0].Status)
	assert.Contains(t, w.Body.String(), "enviado")
}

func TestDeleteUser(t *testing.T) {
	h, trk := newTestHandlers(t)
	user := seedUser(t, trk, "Maria", "maria@example.com", "secret")

	req := httptest.NewRequest("DELETE", "/users/0", http.NoBody)
	req.SetPathValue("id", strconv.FormatInt(user.ID, 10))
	w := httptest.NewRecorder()
	h.DeleteUser(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, trk.UserCount())
}

func TestChangePasswordFlow(t *testing.T) {
	h, trk := newTestHandlers(t)
	seedUser(t, trk, "Maria", "maria@example.com", "secret")
	_, err := trk.SignIn("maria@example.com", "secret")
	require.NoError(t, err)

	// Wrong current password
	w := httptest.NewRecorder()
	h.ChangePassword(w, postForm("/account/password", url.Values{"oldPass": {"wrong"}, "newPass": {"nova"}}, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "senha atual incorreta")

	// Correct current password
	w = httptest.NewRecorder()
	h.ChangePassword(w, postForm("/account/password", url.Values{"oldPass": {"secret"}, "newPass": {"nova"}}, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Senha alterada com sucesso")
	assert.True(t, auth.CheckPassword("nova", trk.Users()[0].Password))
}

func TestFormatBRL(t *testing.T) {
	assert.Equal(t, "R$ 10,50", formatBRL(10.5))
	assert.Equal(t, "R$ 0,00", formatBRL(0))
	assert.Equal(t, "R$ 1.234,56", formatBRL(1234.56))
	assert.Equal(t, "R$ 1.234.567,89", formatBRL(1234567.89))
}
