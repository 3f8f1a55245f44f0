package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"time"
)

// FakeService is an in-process stand-in for a service with a browser-style
// login: a CSRF-protected sign-in form, a ticket page embedding profile and
// preferences as window globals, a cookie-for-token exchange endpoint, and a
// JSON API under /api/.
type FakeService struct {
	Server *httptest.Server

	CSRF       string
	Username   string
	Password   string
	SetCookies []string
	TokenTTL   int64

	mu             sync.Mutex
	signInPages    int
	signInPosts    int
	ticketPages    int
	exchanges      int
	apiCalls       int
	apiStatuses    []int
	exchangeStatus []int
	apiHeaders     []http.Header
	apiBodies      [][]byte
	ticketPage     string
	omitTicket     bool
	acceptCookies  []string
	signInDelay    time.Duration
	exchangeDelay  time.Duration
}

// NewFakeService starts a TLS server; close it with Close
func NewFakeService() *FakeService {
	f := &FakeService{
		CSRF:       "csrf-abc123",
		Username:   "runner@example.com",
		Password:   "hunter2",
		SetCookies: []string{"SESSIONID=s1; Path=/; HttpOnly", "JWT_WEB=j1; Path=/; Secure"},
		TokenTTL:   3600,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/signin", f.handleSignIn)
	mux.HandleFunc("/app", f.handleTicket)
	mux.HandleFunc("/exchange", f.handleExchange)
	mux.HandleFunc("/api/", f.handleAPI)
	f.Server = httptest.NewTLSServer(mux)
	return f
}

func (f *FakeService) Close() { f.Server.Close() }

// Client returns an HTTP client trusting the fake's certificate
func (f *FakeService) Client() *http.Client { return f.Server.Client() }

func (f *FakeService) SignInURL() string   { return f.Server.URL + "/signin" }
func (f *FakeService) ExchangeURL() string { return f.Server.URL + "/exchange" }
func (f *FakeService) APIURL() string      { return f.Server.URL + "/api" }

// Cookie is the cookie string a client should send after logging in
func (f *FakeService) Cookie() string { return strings.Join(f.SetCookies, ";") }

// QueueAPIStatus makes the next API calls answer with the given statuses, in order
func (f *FakeService) QueueAPIStatus(statuses ...int) {
	f.mu.Lock()
	f.apiStatuses = append(f.apiStatuses, statuses...)
	f.mu.Unlock()
}

// QueueExchangeStatus makes the next token exchanges answer with the given statuses
func (f *FakeService) QueueExchangeStatus(statuses ...int) {
	f.mu.Lock()
	f.exchangeStatus = append(f.exchangeStatus, statuses...)
	f.mu.Unlock()
}

// SetTicketPage replaces the HTML served at the ticket url
func (f *FakeService) SetTicketPage(page string) {
	f.mu.Lock()
	f.ticketPage = page
	f.mu.Unlock()
}

// OmitTicket makes the credential post answer without a continuation url
func (f *FakeService) OmitTicket() {
	f.mu.Lock()
	f.omitTicket = true
	f.mu.Unlock()
}

// AcceptCookie makes the exchange endpoint also accept c as a session cookie
func (f *FakeService) AcceptCookie(c string) {
	f.mu.Lock()
	f.acceptCookies = append(f.acceptCookies, c)
	f.mu.Unlock()
}

// DelayNextSignIn holds the next sign-in page for d before answering
func (f *FakeService) DelayNextSignIn(d time.Duration) {
	f.mu.Lock()
	f.signInDelay = d
	f.mu.Unlock()
}

// DelayNextExchange holds the next token exchange for d before answering
func (f *FakeService) DelayNextExchange(d time.Duration) {
	f.mu.Lock()
	f.exchangeDelay = d
	f.mu.Unlock()
}

// Logins counts accepted credential posts
func (f *FakeService) Logins() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signInPosts
}

// Exchanges counts token exchange calls
func (f *FakeService) Exchanges() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exchanges
}

// APICalls counts calls under /api/
func (f *FakeService) APICalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.apiCalls
}

// APIHeaders returns the headers of every API call received so far
func (f *FakeService) APIHeaders() []http.Header {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]http.Header(nil), f.apiHeaders...)
}

// APIBodies returns the bodies of every API call received so far
func (f *FakeService) APIBodies() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.apiBodies...)
}

func (f *FakeService) handleSignIn(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		f.mu.Lock()
		f.signInPages++
		delay := f.signInDelay
		f.signInDelay = 0
		f.mu.Unlock()
		if !wait(r, delay) {
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, `<html><body><form method="post">
<input type="hidden" name="_csrf" value="%s" />
<input type="text" name="username" />
</form></body></html>`, f.CSRF)

	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		if r.PostForm.Get("_csrf") != f.CSRF {
			http.Error(w, "csrf mismatch", http.StatusForbidden)
			return
		}
		f.mu.Lock()
		omit := f.omitTicket
		f.mu.Unlock()

		w.Header().Set("Content-Type", "text/html")
		if omit || r.PostForm.Get("username") != f.Username || r.PostForm.Get("password") != f.Password {
			fmt.Fprint(w, `<html><body><div class="error">Invalid sign in.</div></body></html>`)
			return
		}

		f.mu.Lock()
		f.signInPosts++
		n := f.signInPosts
		f.mu.Unlock()

		for _, c := range f.SetCookies {
			w.Header().Add("Set-Cookie", c)
		}
		ticket := strings.ReplaceAll(fmt.Sprintf("%s/app?ticket=ST-%d-cas", f.Server.URL, n), "/", `\/`)
		fmt.Fprintf(w, `<html><script>var response_url = "%s";</script></html>`, ticket)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *FakeService) handleTicket(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("ticket") == "" || r.Header.Get("Cookie") != f.Cookie() {
		http.Error(w, "no session", http.StatusUnauthorized)
		return
	}

	f.mu.Lock()
	f.ticketPages++
	page := f.ticketPage
	f.mu.Unlock()

	if page == "" {
		page = `<html><head><script>
window.VIEWER_USERPREFERENCES = JSON.parse("{\"displayName\":\"runner\",\"measurementSystem\":\"metric\"}");
window.VIEWER_SOCIAL_PROFILE = {"id":1,"profileId":42,"displayName":"runner","fullName":"Jane Runner"};
</script></head></html>`
	}
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprint(w, page)
}

func (f *FakeService) handleExchange(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.exchanges++
	n := f.exchanges
	status := http.StatusOK
	if len(f.exchangeStatus) > 0 {
		status = f.exchangeStatus[0]
		f.exchangeStatus = f.exchangeStatus[1:]
	}
	delay := f.exchangeDelay
	f.exchangeDelay = 0
	accepted := slices.Contains(f.acceptCookies, r.Header.Get("Cookie"))
	f.mu.Unlock()

	if !wait(r, delay) {
		return
	}
	if r.Method != http.MethodPost || (!accepted && r.Header.Get("Cookie") != f.Cookie()) {
		http.Error(w, "no session", http.StatusForbidden)
		return
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"access_token": fmt.Sprintf("token-%d", n),
		"token_type":   "bearer",
		"expires_in":   f.TokenTTL,
	})
}

func (f *FakeService) handleAPI(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.apiCalls++
	f.apiHeaders = append(f.apiHeaders, r.Header.Clone())
	f.apiBodies = append(f.apiBodies, body)
	status := http.StatusOK
	if len(f.apiStatuses) > 0 {
		status = f.apiStatuses[0]
		f.apiStatuses = f.apiStatuses[1:]
	}
	f.mu.Unlock()

	switch status {
	case http.StatusOK:
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"path":   r.URL.Path,
			"method": r.Method,
		})
	case http.StatusTooManyRequests:
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(status)
	default:
		w.WriteHeader(status)
		fmt.Fprintf(w, `{"error":"status %d"}`, status)
	}
}

// wait sleeps for d unless the client goes away first
func wait(r *http.Request, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-r.Context().Done():
		return false
	}
}
