package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"path"
	"strconv"

	"localeditor/github"
	"localeditor/jsondoc"
	"localeditor/s3"
	"localeditor/services/editor"
	"localeditor/types"
	"localeditor/utils"
	"localeditor/websocket"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxDocumentSize bounds imported documents and request bodies.
const maxDocumentSize = 8 << 20

type errorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		utils.Logger.Warn("Failed to write response", zap.Error(err))
	}
}

// writeError отправляет локализованную ошибку
func writeError(w http.ResponseWriter, r *http.Request, status int, messageID string, data ...utils.TemplateData) {
	writeJSON(w, status, errorResponse{
		Error: utils.T(r.Context(), messageID, data...),
		Code:  messageID,
	})
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxDocumentSize))
	return dec.Decode(v)
}

func (h *handlers) getSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Manager.Settings(r.Context()))
}

func (h *handlers) saveSettings(w http.ResponseWriter, r *http.Request) {
	var settings types.Settings
	if err := decodeBody(r, &settings); err != nil {
		writeError(w, r, http.StatusBadRequest, "errors.invalid_request")
		return
	}

	saved, err := h.deps.Manager.SaveSettings(r.Context(), settings)
	if err != nil {
		utils.Logger.Error("Failed to save settings", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "errors.storage")
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (h *handlers) resetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.deps.Manager.ResetSettings(r.Context())
	if err != nil {
		utils.Logger.Error("Failed to reset settings", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "errors.storage")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

type localesResponse struct {
	Reference   []string `json:"reference"`
	Translation []string `json:"translation"`
}

// listLocales returns the locale folders. Translation targets start with
// the new-locale entry.
func (h *handlers) listLocales(w http.ResponseWriter, r *http.Request) {
	settings := h.deps.Manager.Settings(r.Context())
	entries, err := h.deps.Lister.ListLocales(r.Context(), settings.RepoPath, settings.LangPath)
	if err != nil {
		utils.Logger.Warn("Failed to list locales", zap.String("repo", settings.RepoPath), zap.Error(err))
		writeError(w, r, http.StatusBadGateway, "errors.listing")
		return
	}

	resp := localesResponse{
		Reference:   make([]string, 0, len(entries)),
		Translation: make([]string, 0, len(entries)+1),
	}
	resp.Translation = append(resp.Translation, types.NewLocaleID)
	for _, e := range entries {
		resp.Reference = append(resp.Reference, e.Name)
		resp.Translation = append(resp.Translation, e.Name)
	}
	writeJSON(w, http.StatusOK, resp)
}

// listFiles returns the selectable files of a locale folder.
func (h *handlers) listFiles(w http.ResponseWriter, r *http.Request) {
	settings := h.deps.Manager.Settings(r.Context())
	locale := r.URL.Query().Get("locale")
	if locale == "" {
		locale = types.DefaultRefLocale
	}

	entries, err := h.deps.Lister.ListLocaleFiles(r.Context(), settings.RepoPath, settings.LangPath,
		path.Join(settings.LangPath, locale))
	if err != nil {
		utils.Logger.Warn("Failed to list locale files",
			zap.String("repo", settings.RepoPath), zap.String("locale", locale), zap.Error(err))
		if len(entries) == 0 {
			writeError(w, r, http.StatusBadGateway, "errors.listing")
			return
		}
	}
	writeJSON(w, http.StatusOK, github.FlattenFiles(entries))
}

func (h *handlers) createSession(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	session := h.deps.Manager.Create(r.Context(), types.Selections{
		File:              q.Get("file"),
		RefLocale:         q.Get("ref_locale"),
		TranslationLocale: q.Get("translation_locale"),
	})
	writeJSON(w, http.StatusCreated, session.Info())
}

// session resolves {id} and writes the error response itself.
func (h *handlers) session(w http.ResponseWriter, r *http.Request) (*editor.Session, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, http.StatusNotFound, "errors.session_not_found")
		return nil, false
	}
	session, err := h.deps.Manager.Get(id)
	if err != nil {
		writeError(w, r, http.StatusNotFound, "errors.session_not_found")
		return nil, false
	}
	return session, true
}

func (h *handlers) getSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, session.Info())
}

func (h *handlers) closeSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := h.deps.Manager.Close(r.Context(), session.ID()); err != nil {
		writeError(w, r, http.StatusNotFound, "errors.session_not_found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) updateSelection(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var change types.Selections
	if err := decodeBody(r, &change); err != nil {
		writeError(w, r, http.StatusBadRequest, "errors.invalid_request")
		return
	}

	session, err := h.deps.Manager.Reselect(r.Context(), session.ID(), change)
	if err != nil {
		writeError(w, r, http.StatusNotFound, "errors.session_not_found")
		return
	}
	writeJSON(w, http.StatusOK, session.Info())
}

type rowsResponse struct {
	State  editor.State `json:"state"`
	Notice string       `json:"notice,omitempty"`
	Rows   any          `json:"rows"`
	Stats  any          `json:"stats,omitempty"`
}

// rows returns the editor rows. Before a reference is loaded it answers
// 409 with the notice to show instead of the table.
func (h *handlers) rows(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	rows, err := session.Rows()
	if errors.Is(err, editor.ErrNotReady) {
		state := session.State()
		notice := utils.T(r.Context(), "notices.loading")
		if state == editor.StateNoReference {
			sel := session.Loaded()
			notice = utils.T(r.Context(), "notices.no_reference",
				utils.TemplateData{"Locale": sel.RefLocale, "File": sel.File})
		}
		writeJSON(w, http.StatusConflict, rowsResponse{
			State:  state,
			Notice: notice,
			Rows:   []any{},
		})
		return
	}
	writeJSON(w, http.StatusOK, rowsResponse{
		State: editor.StateReady,
		Rows:  rows,
		Stats: session.Stats(),
	})
}

type setValueRequest struct {
	Path  string `json:"path"`
	Value string `json:"value"`
}

func (h *handlers) setValue(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req setValueRequest
	if err := decodeBody(r, &req); err != nil || req.Path == "" {
		writeError(w, r, http.StatusBadRequest, "errors.invalid_request")
		return
	}

	if err := session.SetValue(r.Context(), req.Path, req.Value); err != nil {
		writeError(w, r, http.StatusConflict, "errors.not_ready")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type toggleRequest struct {
	Path string `json:"path"`
}

func (h *handlers) toggle(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req toggleRequest
	if err := decodeBody(r, &req); err != nil || req.Path == "" {
		writeError(w, r, http.StatusBadRequest, "errors.invalid_request")
		return
	}

	expanded := session.Toggle(r.Context(), req.Path)
	writeJSON(w, http.StatusOK, map[string]any{"path": req.Path, "expanded": expanded})
}

func (h *handlers) getDocument(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_, _ = io.WriteString(w, session.Export())
}

// putDocument replaces the translation with the raw request body.
func (h *handlers) putDocument(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxDocumentSize))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "errors.invalid_request")
		return
	}

	err = session.Import(r.Context(), string(body))
	var parseErr *jsondoc.ParseError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, session.Info())
	case errors.As(err, &parseErr):
		writeError(w, r, http.StatusUnprocessableEntity, "errors.invalid_json",
			utils.TemplateData{"Detail": parseErr.Error()})
	case errors.Is(err, jsondoc.ErrNotObject):
		writeError(w, r, http.StatusUnprocessableEntity, "errors.not_object")
	case errors.Is(err, editor.ErrNotReady):
		writeError(w, r, http.StatusConflict, "errors.not_ready")
	default:
		utils.Logger.Error("Failed to import document", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "errors.internal")
	}
}

// download serves the translation as an attachment named after the
// selected file.
func (h *handlers) download(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	content := session.Export()
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", contentDisposition(session.Filename()))
	w.Header().Set("Content-Length", strconv.Itoa(len(content)))
	_, _ = io.WriteString(w, content)
}

// contentDisposition names an attachment. Non-ASCII names use the RFC 2231
// extended form.
func contentDisposition(name string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": name}); v != "" {
		return v
	}
	return "attachment"
}

// publish uploads the exported translation to object storage.
func (h *handlers) publish(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	if h.deps.Exporter == nil || !h.deps.Exporter.Configured() {
		writeError(w, r, http.StatusServiceUnavailable, "errors.publish_not_configured")
		return
	}

	sel := session.Loaded()
	locale := sel.TranslationLocale
	if locale == "" {
		locale = types.NewLocaleID
	}
	export, err := h.deps.Exporter.UploadExport(r.Context(), session.Settings().RepoPath, locale,
		session.Filename(), []byte(session.Export()))
	if err != nil {
		if errors.Is(err, s3.ErrNotConfigured) {
			writeError(w, r, http.StatusServiceUnavailable, "errors.publish_not_configured")
			return
		}
		utils.Logger.Error("Failed to publish document",
			zap.String("session_id", session.ID().String()), zap.Error(err))
		writeError(w, r, http.StatusBadGateway, "errors.publish_failed")
		return
	}

	session.Published(r.Context(), export.Key)
	writeJSON(w, http.StatusOK, export)
}

// withdraw deletes the session's last published export.
func (h *handlers) withdraw(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	if h.deps.Exporter == nil || !h.deps.Exporter.Configured() {
		writeError(w, r, http.StatusServiceUnavailable, "errors.publish_not_configured")
		return
	}
	key := session.LastExport()
	if key == "" {
		writeError(w, r, http.StatusNotFound, "errors.not_published")
		return
	}

	if err := h.deps.Exporter.DeleteExport(r.Context(), key); err != nil {
		utils.Logger.Error("Failed to withdraw export",
			zap.String("session_id", session.ID().String()),
			zap.String("key", key), zap.Error(err))
		writeError(w, r, http.StatusBadGateway, "errors.publish_failed")
		return
	}

	session.Withdrawn(r.Context(), key)
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) events(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	if h.deps.Bus == nil {
		writeError(w, r, http.StatusServiceUnavailable, "errors.internal")
		return
	}
	websocket.ServeSession(h.deps.Bus, w, r, session.ID())
}
