package mockodata

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ServicePath is where the SAP Gateway publishes the shop-floor service.
const ServicePath = "/sap/opu/odata/sap/ZSHOP_PORTAL_863_SRV"

const sessionCookie = "SAP_SESSIONID_863"

type Server struct {
	mu       sync.Mutex
	users    map[string][]byte // upper-case user ID -> bcrypt hash
	tokens   map[string]bool
	sessions map[string]string // cookie value -> user ID
	sets     map[string][]map[string]string
	failures map[string]int
}

func NewServer(fx Fixtures) (*Server, error) {
	s := &Server{
		users:    make(map[string][]byte),
		tokens:   make(map[string]bool),
		sessions: make(map[string]string),
		sets: map[string][]map[string]string{
			PlannedOrderSet:    fx.PlannedOrders,
			ProductionOrderSet: fx.ProductionOrders,
		},
		failures: make(map[string]int),
	}
	for _, u := range fx.Users {
		if err := s.AddUser(u.ID, u.Password); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Server) AddUser(id, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[strings.ToUpper(id)] = hash
	return nil
}

// Fail makes every read of entitySet answer with status until status 0 is
// set again.
func (s *Server) Fail(entitySet string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failures, entitySet)
		return
	}
	s.failures[entitySet] = status
}

// SetOrders replaces the contents of an entity set.
func (s *Server) SetOrders(entitySet string, records []map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets[entitySet] = records
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Route(ServicePath, func(r chi.Router) {
		r.Get("/", s.serviceRoot)
		r.Post("/LoginSet", s.login)
		r.Get("/{entitySet}", s.readCollection)
	})
	return r
}

func (s *Server) serviceRoot(w http.ResponseWriter, r *http.Request) {
	if strings.EqualFold(r.Header.Get("X-CSRF-Token"), "Fetch") {
		token := uuid.NewString()
		s.mu.Lock()
		s.tokens[token] = true
		s.mu.Unlock()
		w.Header().Set("X-CSRF-Token", token)
	}
	w.Header().Set("Content-Type", "application/xml")
	fmt.Fprintf(w, `<?xml version="1.0" encoding="utf-8"?><service xmlns="http://www.w3.org/2007/app" xml:base="%s/"><workspace><collection href="%s"/><collection href="%s"/><collection href="LoginSet"/></workspace></service>`,
		ServicePath, PlannedOrderSet, ProductionOrderSet)
}

type loginEntry struct {
	XMLName  xml.Name `xml:"entry"`
	Userid   string   `xml:"content>properties>Userid"`
	Password string   `xml:"content>properties>Password"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("X-CSRF-Token")
	s.mu.Lock()
	valid := s.tokens[token]
	s.mu.Unlock()
	if !valid {
		w.Header().Set("X-CSRF-Token", "Required")
		http.Error(w, "CSRF token validation failed", http.StatusForbidden)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 64<<10))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Unable to read request")
		return
	}
	var entry loginEntry
	if err := xml.Unmarshal(body, &entry); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed login entry")
		return
	}

	userID := strings.ToUpper(strings.TrimSpace(entry.Userid))
	s.mu.Lock()
	hash, ok := s.users[userID]
	s.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword(hash, []byte(entry.Password)) != nil {
		slog.Info("mock login rejected", "user", userID)
		writeError(w, http.StatusUnauthorized, "Invalid user ID or password")
		return
	}

	sid := uuid.NewString()
	s.mu.Lock()
	s.sessions[sid] = userID
	s.mu.Unlock()
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: sid, Path: "/", HttpOnly: true})

	w.Header().Set("Content-Type", "application/atom+xml;type=entry")
	w.WriteHeader(http.StatusCreated)
	fmt.Fprintf(w, `<?xml version="1.0" encoding="utf-8"?><entry xmlns="%s" xmlns:m="%s" xmlns:d="%s"><content type="application/xml"><m:properties><d:Userid>`,
		nsAtom, nsMetadata, nsData)
	_ = xml.EscapeText(w, []byte(userID))
	io.WriteString(w, `</d:Userid><d:Password/></m:properties></content></entry>`)
}

func (s *Server) authenticated(r *http.Request) bool {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[c.Value]
	return ok
}

func (s *Server) readCollection(w http.ResponseWriter, r *http.Request) {
	set := chi.URLParam(r, "entitySet")

	s.mu.Lock()
	records, known := s.sets[set]
	failStatus := s.failures[set]
	s.mu.Unlock()

	if !known {
		writeError(w, http.StatusNotFound, "Resource not found for segment '"+set+"'")
		return
	}
	if !s.authenticated(r) {
		writeError(w, http.StatusUnauthorized, "Not logged on")
		return
	}
	if failStatus != 0 {
		writeError(w, failStatus, "Simulated backend failure")
		return
	}

	preds, err := parseFilter(r.URL.Query().Get("$filter"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	selected := make([]map[string]string, 0, len(records))
	for _, rec := range records {
		if matchAll(rec, preds) {
			selected = append(selected, rec)
		}
	}

	if strings.EqualFold(r.URL.Query().Get("$format"), "json") {
		writeJSONFeed(w, set, selected)
		return
	}
	writeAtomFeed(w, set, selected)
}

type predicate struct {
	field string
	op    string
	value time.Time
}

var filterTerm = regexp.MustCompile(`(\w+)\s+(eq|ge|gt|le|lt)\s+datetime'([^']+)'`)

// parseFilter understands AND-ed datetime comparisons, which is all the
// portal sends.
func parseFilter(expr string) ([]predicate, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}
	var preds []predicate
	for _, m := range filterTerm.FindAllStringSubmatch(expr, -1) {
		t, err := time.ParseInLocation(dateLayout, m[3], time.UTC)
		if err != nil {
			return nil, fmt.Errorf("invalid datetime literal %q", m[3])
		}
		preds = append(preds, predicate{field: m[1], op: m[2], value: t})
	}
	if len(preds) == 0 {
		return nil, fmt.Errorf("unsupported $filter %q", expr)
	}
	return preds, nil
}

func matchAll(rec map[string]string, preds []predicate) bool {
	for _, p := range preds {
		t, err := time.ParseInLocation(dateLayout, rec[p.field], time.UTC)
		if err != nil {
			return false
		}
		var ok bool
		switch p.op {
		case "eq":
			ok = t.Equal(p.value)
		case "ge":
			ok = !t.Before(p.value)
		case "gt":
			ok = t.After(p.value)
		case "le":
			ok = !t.After(p.value)
		case "lt":
			ok = t.Before(p.value)
		}
		if !ok {
			return false
		}
	}
	return true
}

func writeError(w http.ResponseWriter, status int, message string) {
	var payload struct {
		Error struct {
			Code    string `json:"code"`
			Message struct {
				Lang  string `json:"lang"`
				Value string `json:"value"`
			} `json:"message"`
		} `json:"error"`
	}
	payload.Error.Code = fmt.Sprintf("ZSHOP/%03d", status)
	payload.Error.Message.Lang = "en"
	payload.Error.Message.Value = message

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
