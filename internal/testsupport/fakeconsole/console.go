// Package fakeconsole serves a minimal list admin console for tests. It
// renders login, directory, and member options pages with the field naming
// of the stock admin skin and applies submissions to in-memory member state.
package fakeconsole

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/mux"
)

const (
	sessionCookie = "admin-session"
	sessionValue  = "granted"
)

// Member is the console-side state of one list member.
type Member struct {
	Address string
	// Blocked is an administrative block, rendered as a checked flag with [B].
	Blocked bool
	// Bounce is a visible bounce disablement, rendered with [bounce].
	Bounce bool
	// BounceHold is a bounce disablement that the directory renders as a plain
	// block. Clearing the flag on the member form does not stick while it holds.
	BounceHold bool
	// Sticky makes member-form clears ineffective without any bounce state.
	Sticky bool
	// BounceClearFailures is the number of options submissions to ignore.
	BounceClearFailures int
	// DirectoryLag is the number of directory renders after a clear that
	// still show the member blocked.
	DirectoryLag int

	lagging int
}

// Console is a running fake admin console.
type Console struct {
	Server   *httptest.Server
	List     string
	Password string

	mu         sync.Mutex
	members    []*Member
	failKeys   map[string]bool
	statusKeys map[string]int
	blankKeys  map[string]bool
	rejectAll  bool
	openAccess bool
	failSubmit bool
	loginCode  int
	onSubmit   func()

	mutations    int
	loginPosts   int
	memberPosts  []string
	optionsPosts []string
	requests     []string
}

// Option customizes the console.
type Option func(*Console)

// WithMembers seeds the member list in directory order.
func WithMembers(members ...Member) Option {
	return func(c *Console) {
		for _, m := range members {
			m := m
			c.members = append(c.members, &m)
		}
	}
}

// WithNetworkFailure drops the connection for the directory page of key.
func WithNetworkFailure(key string) Option {
	return func(c *Console) { c.failKeys[key] = true }
}

// WithStatus answers the directory page of key with status.
func WithStatus(key string, status int) Option {
	return func(c *Console) { c.statusKeys[key] = status }
}

// WithBlankPage answers the directory page of key with an empty 200 body.
func WithBlankPage(key string) Option {
	return func(c *Console) { c.blankKeys[key] = true }
}

// WithLoginStatus serves the login page with status instead of 200.
func WithLoginStatus(status int) Option {
	return func(c *Console) { c.loginCode = status }
}

// WithSubmitHook calls fn while a member-form submission is being handled,
// before it is applied.
func WithSubmitHook(fn func()) Option {
	return func(c *Console) { c.onSubmit = fn }
}

// WithForbiddenAdmin answers every admin request with 403.
func WithForbiddenAdmin() Option {
	return func(c *Console) { c.rejectAll = true }
}

// WithOpenAccess serves admin pages without a login step.
func WithOpenAccess() Option {
	return func(c *Console) { c.openAccess = true }
}

// WithSubmitFailure answers member-form submissions with 500 and leaves
// member state unchanged.
func WithSubmitFailure() Option {
	return func(c *Console) { c.failSubmit = true }
}

// New starts a console for list "announce" with password "letmein".
func New(t testing.TB, opts ...Option) *Console {
	t.Helper()
	c := &Console{
		List:       "announce",
		Password:   "letmein",
		failKeys:   make(map[string]bool),
		statusKeys: make(map[string]int),
		blankKeys:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}

	router := mux.NewRouter()
	router.HandleFunc("/mailman/admin/{list}/members", c.handleMembers).Methods(http.MethodGet, http.MethodPost)
	router.HandleFunc("/mailman/options/{list}/{address}", c.handleOptions).Methods(http.MethodGet, http.MethodPost)
	router.Use(c.recordRequests)

	c.Server = httptest.NewServer(router)
	t.Cleanup(c.Server.Close)
	return c
}

// URL returns the console base URL.
func (c *Console) URL() string {
	return c.Server.URL
}

// Mutations counts state-changing submissions: member form and options posts.
func (c *Console) Mutations() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mutations
}

// LoginPosts counts credential submissions.
func (c *Console) LoginPosts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loginPosts
}

// MemberPosts returns the raw bodies of member-form submissions.
func (c *Console) MemberPosts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.memberPosts)
}

// OptionsPosts returns the raw bodies of options submissions.
func (c *Console) OptionsPosts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.optionsPosts)
}

// Requests returns "METHOD path?query" for every request served.
func (c *Console) Requests() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.requests)
}

// Member returns a copy of the member state.
func (c *Console) Member(address string) (Member, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m := c.find(address); m != nil {
		return *m, true
	}
	return Member{}, false
}

func (c *Console) find(address string) *Member {
	for _, m := range c.members {
		if strings.EqualFold(m.Address, address) {
			return m
		}
	}
	return nil
}

func (c *Console) recordRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.mu.Lock()
		entry := r.Method + " " + r.URL.Path
		if r.URL.RawQuery != "" {
			entry += "?" + r.URL.RawQuery
		}
		c.requests = append(c.requests, entry)
		c.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (c *Console) authorized(r *http.Request) bool {
	if c.openAccess {
		return true
	}
	cookie, err := r.Cookie(sessionCookie)
	return err == nil && cookie.Value == sessionValue
}

func (c *Console) handleMembers(w http.ResponseWriter, r *http.Request) {
	if mux.Vars(r)["list"] != c.List {
		http.NotFound(w, r)
		return
	}
	if c.rejectAll {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	raw := captureBody(r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if !c.authorized(r) {
		if r.Method == http.MethodPost && r.PostForm.Has("adminpw") {
			c.mu.Lock()
			c.loginPosts++
			c.mu.Unlock()
			if r.PostForm.Get("adminpw") == c.Password && r.PostForm.Get("csrf_token") == "login-tok" {
				http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: sessionValue, Path: "/"})
				c.writeDirectory(w, "")
				return
			}
		}
		c.writeLogin(w)
		return
	}

	key := strings.ToLower(r.URL.Query().Get("letter"))
	if r.Method == http.MethodGet {
		c.mu.Lock()
		fail, status, blank := c.failKeys[key], c.statusKeys[key], c.blankKeys[key]
		c.mu.Unlock()
		if fail {
			dropConnection(w)
			return
		}
		if blank {
			writeHTML(w, "")
			return
		}
		if status != 0 {
			http.Error(w, http.StatusText(status), status)
			return
		}
		c.writeDirectory(w, key)
		return
	}

	if !r.PostForm.Has("setmemberopts_btn") {
		c.writeDirectory(w, key)
		return
	}
	if c.onSubmit != nil {
		c.onSubmit()
	}
	if c.failSubmit {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	c.applyMemberForm(r, raw)
	c.writeDirectory(w, key)
}

// applyMemberForm mirrors the console: every listed user whose nomail flag
// is absent from the submission has delivery re-enabled.
func (c *Console) applyMemberForm(r *http.Request, raw string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mutations++
	c.memberPosts = append(c.memberPosts, raw)
	for _, quoted := range r.PostForm["user"] {
		address, err := url.PathUnescape(quoted)
		if err != nil {
			continue
		}
		m := c.find(address)
		if m == nil || r.PostForm.Has(quoted+"_nomail") {
			continue
		}
		if m.BounceHold || m.Sticky {
			continue
		}
		m.Blocked = false
		m.Bounce = false
		m.lagging = m.DirectoryLag
	}
}

func (c *Console) handleOptions(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if vars["list"] != c.List {
		http.NotFound(w, r)
		return
	}
	if !c.authorized(r) {
		c.writeLogin(w)
		return
	}
	address := vars["address"]
	c.mu.Lock()
	m := c.find(address)
	c.mu.Unlock()
	if m == nil {
		http.NotFound(w, r)
		return
	}
	raw := captureBody(r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if r.Method == http.MethodPost && r.PostForm.Has("options-submit") {
		c.mu.Lock()
		c.mutations++
		c.optionsPosts = append(c.optionsPosts, raw)
		if r.PostForm.Get("disablemail") == "0" && r.PostForm.Get("csrf_token") == "opt-tok" {
			if m.BounceClearFailures > 0 {
				m.BounceClearFailures--
			} else {
				m.Bounce = false
				m.BounceHold = false
				m.Blocked = false
				m.lagging = m.DirectoryLag
			}
		}
		c.mu.Unlock()
	}

	c.mu.Lock()
	page := renderOptions(c.List, *m)
	c.mu.Unlock()
	writeHTML(w, page)
}

func (c *Console) writeDirectory(w http.ResponseWriter, key string) {
	c.mu.Lock()
	var rows []Member
	for _, m := range c.members {
		if key == "" || strings.HasPrefix(strings.ToLower(m.Address), key) {
			row := *m
			if m.lagging > 0 {
				row.Blocked = true
				m.lagging--
			}
			rows = append(rows, row)
		}
	}
	c.mu.Unlock()
	writeHTML(w, renderDirectory(c.List, key, rows))
}

// captureBody returns the request body and leaves it readable for ParseForm.
func captureBody(r *http.Request) string {
	if r.Body == nil {
		return ""
	}
	data, err := io.ReadAll(r.Body)
	_ = r.Body.Close()
	if err != nil {
		return ""
	}
	r.Body = io.NopCloser(bytes.NewReader(data))
	return string(data)
}

func (c *Console) writeLogin(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if c.loginCode != 0 {
		w.WriteHeader(c.loginCode)
	}
	_, _ = w.Write([]byte(renderLogin(c.List)))
}

func writeHTML(w http.ResponseWriter, page string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(page))
}

func dropConnection(w http.ResponseWriter) {
	hj, ok := w.(http.Hijacker)
	if !ok {
		http.Error(w, "hijack unsupported", http.StatusInternalServerError)
		return
	}
	conn, _, err := hj.Hijack()
	if err != nil {
		return
	}
	_ = conn.Close()
}
