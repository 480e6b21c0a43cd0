package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/calde-dev/calde/internal/xml"
	"github.com/calde-dev/calde/internal/xml/props"
	"github.com/calde-dev/calde/server/ical"
	"github.com/calde-dev/calde/server/storage"
)

// protectedProps may never be modified by clients. A set targeting any of
// them rejects the whole PROPPATCH.
var protectedProps = map[props.Name]bool{
	props.DAV("resourcetype"):                        true,
	props.DAV("getetag"):                             true,
	props.DAV("getcontenttype"):                      true,
	props.DAV("getlastmodified"):                     true,
	props.DAV("owner"):                               true,
	props.DAV("current-user-principal"):              true,
	props.DAV("principal-URL"):                       true,
	props.DAV("principal-collection-set"):            true,
	props.DAV("supported-report-set"):                true,
	props.DAV("current-user-privilege-set"):          true,
	props.DAV("sync-token"):                          true,
	props.CS("getctag"):                              true,
	props.CS("allowed-sharing-modes"):                true,
	props.CalDAV("calendar-home-set"):                true,
	props.CalDAV("calendar-user-address-set"):        true,
	props.CalDAV("schedule-inbox-URL"):               true,
	props.CalDAV("schedule-outbox-URL"):              true,
	props.CalDAV("supported-calendar-component-set"): true,
	props.CalDAV("calendar-data"):                    true,
}

// patchOp is one parsed set or remove instruction.
type patchOp struct {
	Name   props.Name
	Value  string
	Lang   string
	Remove bool
}

func (h *CaldavHandler) handleProppatch(w http.ResponseWriter, r *http.Request, rctx *RequestContext) {
	switch rctx.Resource.Type {
	case ResourceCollection:
	case ResourcePrincipal, ResourceHomeSet:
		h.rejectProppatch(w, r, rctx)
		return
	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	if rctx.Calendar.ReadOnly {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	ops, err := h.parseProppatchBody(r)
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if len(ops) == 0 {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	// Classify everything before touching storage, so a rejection leaves
	// the calendar untouched.
	updates := &storage.CalendarUpdate{}
	statuses := make(map[props.Name]string, len(ops))
	rejected := false
	for _, op := range ops {
		status := h.classifyPatchOp(op, updates)
		statuses[op.Name] = status
		if status != xml.StatusOK {
			rejected = true
		}
	}

	if rejected {
		for name, status := range statuses {
			if status == xml.StatusOK {
				statuses[name] = xml.StatusFailedDependency
			}
		}
		h.writeMultistatus(w, proppatchResult(rctx.Resource.URI, ops, statuses))
		return
	}

	if _, err := h.Provider.UpdateCalendar(r.Context(), rctx.Resource.PrincipalID, rctx.Resource.CalendarID, updates); err != nil {
		h.Logger.Error("proppatch update failed",
			"calendar", rctx.Resource.CalendarID, "error", err)
		for name := range statuses {
			statuses[name] = xml.StatusInternalServerError
		}
	}
	h.writeMultistatus(w, proppatchResult(rctx.Resource.URI, ops, statuses))
}

// rejectProppatch answers a PROPPATCH against a resource with no writable
// properties: every requested property reports 403.
func (h *CaldavHandler) rejectProppatch(w http.ResponseWriter, r *http.Request, rctx *RequestContext) {
	ops, err := h.parseProppatchBody(r)
	if err != nil || len(ops) == 0 {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	statuses := make(map[props.Name]string, len(ops))
	for _, op := range ops {
		statuses[op.Name] = xml.StatusForbidden
	}
	h.writeMultistatus(w, proppatchResult(rctx.Resource.URI, ops, statuses))
}

// classifyPatchOp validates one instruction and, when acceptable, folds it
// into the pending update. Returns the propstat status for the property.
func (h *CaldavHandler) classifyPatchOp(op patchOp, updates *storage.CalendarUpdate) string {
	if protectedProps[op.Name] {
		return xml.StatusForbidden
	}
	value := op.Value
	if op.Remove {
		value = ""
	}
	switch op.Name {
	case props.DAV("displayname"):
		updates.DisplayName = &value
		lang := op.Lang
		updates.DisplayNameLang = &lang
	case props.CalDAV("calendar-description"):
		updates.Description = &value
		lang := op.Lang
		updates.DescriptionLang = &lang
	case props.CalDAV("calendar-timezone"):
		if !op.Remove {
			if err := ical.ValidateTimezone(value); err != nil {
				return xml.StatusConflict
			}
		}
		updates.Timezone = &value
	case props.Apple("calendar-color"):
		updates.Color = &value
	case props.Apple("calendar-order"):
		order := 0
		if !op.Remove {
			n, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil {
				return xml.StatusConflict
			}
			order = n
		}
		updates.Order = &order
	default:
		// Unrecognized but not protected: accepted without effect.
		h.Logger.Info("ignoring unhandled proppatch property", "property", op.Name.String())
	}
	return xml.StatusOK
}

// parseProppatchBody flattens a propertyupdate document into instructions
// in document order. Set and remove blocks may interleave.
func (h *CaldavHandler) parseProppatchBody(r *http.Request) ([]patchOp, error) {
	root, err := h.readBodyElement(r)
	if err != nil || root == nil {
		if err == nil {
			return nil, nil
		}
		return nil, err
	}
	var ops []patchOp
	for _, block := range root.ChildElements() {
		remove := block.Tag == "remove"
		if block.Tag != "set" && !remove {
			continue
		}
		for _, prop := range xml.ChildrenByLocalName(block, "prop") {
			for _, elem := range prop.ChildElements() {
				ops = append(ops, patchOp{
					Name:   props.FromElement(elem),
					Value:  elem.Text(),
					Lang:   inheritedLang(elem),
					Remove: remove,
				})
			}
		}
	}
	return ops, nil
}

// inheritedLang finds the xml:lang in effect for an element, walking up
// through its ancestors.
func inheritedLang(elem *etree.Element) string {
	for e := elem; e != nil; e = e.Parent() {
		if lang := e.SelectAttrValue("xml:lang", ""); lang != "" {
			return lang
		}
	}
	return ""
}

// proppatchResult renders one propstat per property, carrying its status
// and echoing the property name with no value.
func proppatchResult(href string, ops []patchOp, statuses map[props.Name]string) *etree.Document {
	var propstats []xml.PropStat
	seen := make(map[props.Name]bool, len(ops))
	for _, op := range ops {
		if seen[op.Name] {
			continue
		}
		seen[op.Name] = true
		propstats = append(propstats, xml.PropStat{
			Status: statuses[op.Name],
			Props:  []props.Property{props.Empty{Name: op.Name}},
		})
	}
	return xml.Multistatus([]xml.Response{{Href: href, PropStats: propstats}})
}
