package tracker

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"procurement-tracker/internal/auth"
	"procurement-tracker/internal/models"
	"procurement-tracker/internal/storage"
)

// ConfirmFn is a confirmation gate: destructive operations call it with a
// prompt and abort when it returns false.
type ConfirmFn func(prompt string) bool

// AlwaysConfirm accepts every prompt. The web layer passes it because the
// browser-side confirm dialog has already gated the request.
func AlwaysConfirm(string) bool { return true }

// Tracker owns the suppliers, purchases and users collections and the
// session singleton, and is the only component that mutates them. A mutex
// serializes mutations, so no two operations interleave. Every successful
// mutation is persisted in full before the method returns; on a persistence
// failure the in-memory state is rolled back.
type Tracker struct {
	mu        sync.Mutex
	store     *storage.Store
	suppliers []models.Supplier
	purchases []models.Purchase
	users     []models.User
	session   *models.Session
	lastID    int64
}

// New loads all collections and the session from the store.
func New(store *storage.Store) (*Tracker, error) {
	suppliers, err := store.LoadSuppliers()
	if err != nil {
		return nil, fmt.Errorf("load suppliers: %w", err)
	}
	purchases, err := store.LoadPurchases()
	if err != nil {
		return nil, fmt.Errorf("load purchases: %w", err)
	}
	users, err := store.LoadUsers()
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	session, err := store.LoadSession()
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	t := &Tracker{
		store:     store,
		suppliers: suppliers,
		purchases: purchases,
		users:     users,
		session:   session,
	}
	for _, s := range suppliers {
		t.lastID = max(t.lastID, s.ID)
	}
	for _, p := range purchases {
		t.lastID = max(t.lastID, p.ID)
	}
	for _, u := range users {
		t.lastID = max(t.lastID, u.ID)
	}
	return t, nil
}

// newID returns a millisecond timestamp, nudged forward when needed so ids
// stay unique under rapid successive operations.
func (t *Tracker) newID() int64 {
	id := time.Now().UnixMilli()
	if id <= t.lastID {
		id = t.lastID + 1
	}
	t.lastID = id
	return id
}

func (t *Tracker) saveAll() error {
	return t.store.SaveAll(t.suppliers, t.purchases)
}

// ParseAmount parses a user-supplied amount, accepting a comma as the
// decimal separator. Non-numeric, zero or negative input is rejected.
func ParseAmount(raw string) (float64, error) {
	raw = strings.TrimSpace(strings.Replace(raw, ",", ".", 1))
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || v <= 0 {
		return 0, &ValidationError{Message: "Informe um valor válido"}
	}
	return v, nil
}

// AddSupplier appends a new supplier. Fails when the name trims to empty.
func (t *Tracker) AddSupplier(name string) (models.Supplier, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	name = strings.TrimSpace(name)
	if name == "" {
		return models.Supplier{}, &ValidationError{Message: "Digite o nome do fornecedor"}
	}

	supplier := models.Supplier{ID: t.newID(), Name: name}
	t.suppliers = append(t.suppliers, supplier)
	if err := t.saveAll(); err != nil {
		t.suppliers = t.suppliers[:len(t.suppliers)-1]
		return models.Supplier{}, err
	}
	return supplier, nil
}

// RemoveSupplier deletes the supplier with the given id. Removing an absent
// id is a no-op. Purchases referencing the supplier's name keep it.
func (t *Tracker) RemoveSupplier(id int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := slices.IndexFunc(t.suppliers, func(s models.Supplier) bool { return s.ID == id })
	if idx < 0 {
		return nil
	}

	prev := t.suppliers
	t.suppliers = slices.Delete(slices.Clone(t.suppliers), idx, idx+1)
	if err := t.saveAll(); err != nil {
		t.suppliers = prev
		return err
	}
	return nil
}

// AddPurchase validates the inputs and appends a new purchase with the
// current creation timestamp.
func (t *Tracker) AddPurchase(supplierName, amountRaw, category, description string, status models.Status) (models.Purchase, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if supplierName == "" {
		return models.Purchase{}, &ValidationError{Message: "Escolha um fornecedor"}
	}
	amount, err := ParseAmount(amountRaw)
	if err != nil {
		return models.Purchase{}, err
	}
	if status != models.StatusSent && status != models.StatusCancelled {
		status = models.StatusPending
	}

	purchase := models.Purchase{
		ID:           t.newID(),
		SupplierName: supplierName,
		Amount:       amount,
		Category:     category,
		Description:  strings.TrimSpace(description),
		Status:       status,
		CreatedAt:    time.Now(),
	}
	t.purchases = append(t.purchases, purchase)
	if err := t.saveAll(); err != nil {
		t.purchases = t.purchases[:len(t.purchases)-1]
		return models.Purchase{}, err
	}
	return purchase, nil
}

// RemovePurchase deletes the purchase with the given id after the
// confirmation gate accepts. Declining aborts with ErrDeclined and no state
// change; an absent id is a no-op.
func (t *Tracker) RemovePurchase(id int64, confirm ConfirmFn) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if confirm == nil {
		confirm = AlwaysConfirm
	}
	if !confirm("Remover compra?") {
		return ErrDeclined
	}

	idx := slices.IndexFunc(t.purchases, func(p models.Purchase) bool { return p.ID == id })
	if idx < 0 {
		return nil
	}

	prev := t.purchases
	t.purchases = slices.Delete(slices.Clone(t.purchases), idx, idx+1)
	if err := t.saveAll(); err != nil {
		t.purchases = prev
		return err
	}
	return nil
}

// CycleStatus advances the status of the purchase with the given id one
// step in the fixed cycle, leaving every other purchase untouched. An
// absent id is a no-op.
func (t *Tracker) CycleStatus(id int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := slices.IndexFunc(t.purchases, func(p models.Purchase) bool { return p.ID == id })
	if idx < 0 {
		return nil
	}

	prev := t.purchases[idx].Status
	t.purchases[idx].Status = prev.Next()
	if err := t.saveAll(); err != nil {
		t.purchases[idx].Status = prev
		return err
	}
	return nil
}

// AddUser appends a user record with an already-hashed password. Emails
// must be unique, compared case-sensitively as stored.
func (t *Tracker) AddUser(name, email, passwordHash string) (models.User, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	email = strings.TrimSpace(email)
	if email == "" {
		return models.User{}, &ValidationError{Message: "Informe o email"}
	}
	for _, u := range t.users {
		if u.Email == email {
			return models.User{}, fmt.Errorf("user %s already exists", email)
		}
	}

	user := models.User{ID: t.newID(), Name: strings.TrimSpace(name), Email: email, Password: passwordHash}
	t.users = append(t.users, user)
	if err := t.store.SaveUsers(t.users); err != nil {
		t.users = t.users[:len(t.users)-1]
		return models.User{}, err
	}
	return user, nil
}

// RemoveUser deletes the user with the given id after the confirmation gate
// accepts.
func (t *Tracker) RemoveUser(id int64, confirm ConfirmFn) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if confirm == nil {
		confirm = AlwaysConfirm
	}
	if !confirm("Remover usuário?") {
		return ErrDeclined
	}

	idx := slices.IndexFunc(t.users, func(u models.User) bool { return u.ID == id })
	if idx < 0 {
		return nil
	}

	prev := t.users
	t.users = slices.Delete(slices.Clone(t.users), idx, idx+1)
	if err := t.store.SaveUsers(t.users); err != nil {
		t.users = prev
		return err
	}
	return nil
}

// ChangePassword replaces the password of the user matching email, in two
// phases: verify the current password first, then apply the single-record
// update. Any failure leaves the whole collection untouched.
func (t *Tracker) ChangePassword(email, oldPassword, newPassword string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if oldPassword == "" || newPassword == "" {
		return &ValidationError{Message: "Preencha as senhas"}
	}

	idx := slices.IndexFunc(t.users, func(u models.User) bool { return u.Email == email })
	if idx < 0 {
		return fmt.Errorf("%w: usuário não encontrado", ErrAuth)
	}
	if !auth.CheckPassword(oldPassword, t.users[idx].Password) {
		return fmt.Errorf("%w: senha atual incorreta", ErrAuth)
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}

	prev := t.users[idx].Password
	t.users[idx].Password = hash
	if err := t.store.SaveUsers(t.users); err != nil {
		t.users[idx].Password = prev
		return err
	}
	return nil
}

// SignIn verifies the credentials and replaces the session singleton.
func (t *Tracker) SignIn(email, password string) (models.Session, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := slices.IndexFunc(t.users, func(u models.User) bool { return u.Email == email })
	if idx < 0 || !auth.CheckPassword(password, t.users[idx].Password) {
		return models.Session{}, fmt.Errorf("%w: email ou senha inválidos", ErrAuth)
	}

	session := models.Session{
		Name:  t.users[idx].Name,
		Email: t.users[idx].Email,
		Token: auth.NewSessionToken(),
	}
	if err := t.store.SaveSession(session); err != nil {
		return models.Session{}, err
	}
	t.session = &session
	return session, nil
}

// SignOut clears the session singleton.
func (t *Tracker) SignOut() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.store.ClearSession(); err != nil {
		return err
	}
	t.session = nil
	return nil
}

// Session returns a copy of the session singleton, or nil when signed out.
func (t *Tracker) Session() *models.Session {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.session == nil {
		return nil
	}
	session := *t.session
	return &session
}

// Suppliers returns the suppliers in insertion order.
func (t *Tracker) Suppliers() []models.Supplier {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.suppliers)
}

// Purchases returns the purchases in insertion order.
func (t *Tracker) Purchases() []models.Purchase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.purchases)
}

// Users returns the users in insertion order.
func (t *Tracker) Users() []models.User {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.users)
}

// UserCount returns the number of registered users.
func (t *Tracker) UserCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.users)
}

// Dashboard holds the counters shown on the overview tab.
type Dashboard struct {
	TotalPurchases   int
	TotalSuppliers   int
	PendingPurchases int
}

// Dashboard computes the overview counters from the live collections.
func (t *Tracker) Dashboard() Dashboard {
	t.mu.Lock()
	defer t.mu.Unlock()

	d := Dashboard{
		TotalPurchases: len(t.purchases),
		TotalSuppliers: len(t.suppliers),
	}
	for _, p := range t.purchases {
		if p.Status == models.StatusPending {
			d.PendingPurchases++
		}
	}
	return d
}
