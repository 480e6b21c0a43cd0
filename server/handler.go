package server

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/calde-dev/calde/internal/xml"
	"github.com/calde-dev/calde/server/ical"
	"github.com/calde-dev/calde/server/storage"
)

// davCapabilities is advertised in the DAV response header.
const davCapabilities = "1, 3, calendar-access, calendar-schedule"

// CaldavHandler serves the CalDAV protocol over a storage.Provider. Zero
// value is not usable; construct with NewCaldavHandler.
type CaldavHandler struct {
	Provider     storage.Provider
	URLConverter URLConverter
	Logger       *slog.Logger

	// Realm is sent in WWW-Authenticate challenges.
	Realm string
	// ProdID overrides the PRODID of generated calendars.
	ProdID string
	// MaxDepth caps the Depth header on PROPFIND; 0 means depth 1.
	MaxDepth int

	// Authenticate maps basic-auth credentials to a principal. When nil,
	// the username is treated as a principal ID and looked up directly.
	Authenticate AuthenticateFunc
}

// NewCaldavHandler builds a handler rooted at the given URL prefixes.
// Passing a nil logger discards log output.
func NewCaldavHandler(principalRoot, calendarRoot, realm string, provider storage.Provider, maxDepth int, converter URLConverter, logger *slog.Logger) *CaldavHandler {
	if converter == nil {
		converter = DefaultURLConverter{
			PrincipalRoot: principalRoot,
			CalendarRoot:  calendarRoot,
		}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if maxDepth <= 0 {
		maxDepth = 1
	}
	return &CaldavHandler{
		Provider:     provider,
		URLConverter: converter,
		Logger:       logger,
		Realm:        realm,
		MaxDepth:     maxDepth,
	}
}

func (h *CaldavHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.checkAuth(w, r)
	if !ok {
		return
	}

	res, err := h.URLConverter.ParsePath(r.URL.Path)
	if err != nil {
		h.Logger.Warn("unparseable request path", "path", r.URL.Path, "error", err)
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	if res.PrincipalID != principal.PrincipalID {
		h.Logger.Warn("principal mismatch",
			"authenticated", principal.PrincipalID, "path", res.PrincipalID)
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	rctx, err := h.newRequestContext(r.Context(), res, h.parseDepth(r))
	if err != nil {
		h.writeStorageError(w, err)
		return
	}
	rctx.Principal = principal

	// Calendar-scoped requests resolve the collection up front, so every
	// method sees a consistent 404 for a missing calendar. MKCALENDAR is
	// the exception: its collection does not exist yet.
	if res.Type == ResourceCollection || res.Type == ResourceObject {
		if r.Method != "MKCALENDAR" {
			cal, err := h.Provider.GetCalendar(r.Context(), res.PrincipalID, res.CalendarID)
			if err != nil {
				h.writeStorageError(w, err)
				return
			}
			rctx.Calendar = cal
		}
	}

	h.Logger.Debug("dispatching request",
		"method", r.Method, "type", res.Type.String(), "uri", res.URI)

	switch r.Method {
	case "OPTIONS":
		h.handleOptions(w, rctx)
	case "PROPFIND":
		h.handlePropfind(w, r, rctx)
	case "PROPPATCH":
		h.handleProppatch(w, r, rctx)
	case "REPORT":
		h.handleReport(w, r, rctx)
	case "MKCALENDAR":
		h.handleMkcalendar(w, r, rctx)
	case http.MethodGet, http.MethodHead:
		h.handleGet(w, r, rctx)
	case http.MethodPut:
		h.handlePut(w, r, rctx)
	case http.MethodDelete:
		h.handleDelete(w, r, rctx)
	case http.MethodPost:
		h.handlePost(w, r, rctx)
	default:
		w.Header().Set("Allow", h.allowedMethods(rctx))
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

func (h *CaldavHandler) handleOptions(w http.ResponseWriter, rctx *RequestContext) {
	w.Header().Set("DAV", davCapabilities)
	w.Header().Set("Allow", h.allowedMethods(rctx))
	w.WriteHeader(http.StatusOK)
}

func (h *CaldavHandler) allowedMethods(rctx *RequestContext) string {
	methods := []string{"OPTIONS", "PROPFIND", "REPORT", "GET", "HEAD"}
	switch rctx.Resource.Type {
	case ResourceScheduleOutbox:
		methods = append(methods, "POST")
	case ResourceCollection, ResourceObject:
		if rctx.Resource.Type == ResourceCollection {
			methods = append(methods, "MKCALENDAR")
		}
		if rctx.Calendar == nil || !rctx.Calendar.ReadOnly {
			methods = append(methods, "PROPPATCH", "PUT", "DELETE")
		}
	}
	return strings.Join(methods, ", ")
}

func (h *CaldavHandler) parseDepth(r *http.Request) int {
	raw := r.Header.Get("Depth")
	if raw == "" || strings.EqualFold(raw, "infinity") {
		return h.MaxDepth
	}
	depth, err := strconv.Atoi(raw)
	if err != nil || depth < 0 {
		return h.MaxDepth
	}
	if depth > h.MaxDepth {
		return h.MaxDepth
	}
	return depth
}

// readBodyElement reads and parses the request body as XML, returning its
// root element. A missing or empty body returns (nil, nil); a body that
// fails to parse returns an error.
func (h *CaldavHandler) readBodyElement(r *http.Request) (*etree.Element, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, nil
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return nil, err
	}
	root := doc.Root()
	if root == nil {
		return nil, errors.New("xml body without root element")
	}
	return root, nil
}

func (h *CaldavHandler) writeMultistatus(w http.ResponseWriter, doc *etree.Document) {
	h.writeXML(w, http.StatusMultiStatus, doc)
}

func (h *CaldavHandler) writeXML(w http.ResponseWriter, status int, doc *etree.Document) {
	out, err := xml.Serialize(doc)
	if err != nil {
		h.Logger.Error("serialize response document", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", `application/xml; charset="utf-8"`)
	w.WriteHeader(status)
	if _, err := io.WriteString(w, out); err != nil {
		h.Logger.Error("write response body", "error", err)
	}
}

// writeStorageError maps provider sentinel errors onto HTTP statuses.
func (h *CaldavHandler) writeStorageError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		http.Error(w, "Not Found", http.StatusNotFound)
	case errors.Is(err, storage.ErrPermissionDenied):
		http.Error(w, "Forbidden", http.StatusForbidden)
	case errors.Is(err, storage.ErrInvalidInput):
		http.Error(w, "Bad Request", http.StatusBadRequest)
	case errors.Is(err, storage.ErrConflict):
		http.Error(w, "Conflict", http.StatusConflict)
	default:
		h.Logger.Error("storage operation failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func (h *CaldavHandler) prodID() string {
	if h.ProdID != "" {
		return h.ProdID
	}
	return ical.DefaultProdID
}
