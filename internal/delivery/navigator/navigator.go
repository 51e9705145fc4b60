package navigator

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"tree_nav/internal/bootstrap"
	"tree_nav/internal/domain/session"
	errs "tree_nav/internal/errors"
	"tree_nav/internal/httpresponse"
	"tree_nav/internal/outline"
	"tree_nav/internal/usecase/navigation"
	"tree_nav/internal/utils"
)

const defaultUploadName = "tree.txt"

var validate = validator.New(validator.WithRequiredStructEnabled())

type NavigatorHandler struct {
	cfg   bootstrap.Config
	log   *zap.SugaredLogger
	navUC *navigation.UseCase
	hub   *hub
}

func NewNavigatorHandler(cfg bootstrap.Config, log *zap.SugaredLogger, navUC *navigation.UseCase) *NavigatorHandler {
	return &NavigatorHandler{
		cfg:   cfg,
		log:   log,
		navUC: navUC,
		hub:   newHub(log),
	}
}

func (h *NavigatorHandler) Routes(r chi.Router) {
	r.Post("/trees", h.HandleUpload)
	r.Get("/trees/{treeID}", h.HandleGetTree)
	r.Get("/trees/{treeID}/outline", h.HandleOutline)

	r.Post("/sessions", h.HandleStartSession)
	r.Get("/sessions/{sessionID}", h.HandleGetSession)
	r.Delete("/sessions/{sessionID}", h.HandleCloseSession)
	r.Post("/sessions/{sessionID}/choose", h.HandleChoose)
	r.Post("/sessions/{sessionID}/reset", h.HandleReset)
	r.Put("/sessions/{sessionID}/tree", h.HandleReplaceTree)
	r.Get("/sessions/{sessionID}/report", h.HandleReport)
	r.Get("/sessions/{sessionID}/ws", h.HandleWatch)
}

func (h *NavigatorHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	name, source, err := h.readSource(w, r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	view, err := h.navUC.Upload(r.Context(), name, source)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.log.Infof("tree %s uploaded from %s", view.TreeID, name)
	httpresponse.WriteResponseWithStatus(w, http.StatusCreated, view)
}

func (h *NavigatorHandler) HandleGetTree(w http.ResponseWriter, r *http.Request) {
	upload, err := h.navUC.Tree(r.Context(), chi.URLParam(r, "treeID"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	switch r.URL.Query().Get("format") {
	case "", "json":
		httpresponse.WriteResponseWithStatus(w, http.StatusOK, upload)
	case "yaml":
		out, err := yaml.Marshal(upload.Tree())
		if err != nil {
			h.log.Errorf("encode tree %s as yaml: %v", upload.ID, err)
			httpresponse.WriteInternalErrorResponse(w)
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(out)
	default:
		httpresponse.WriteError(w, http.StatusBadRequest, "format must be json or yaml")
	}
}

func (h *NavigatorHandler) HandleOutline(w http.ResponseWriter, r *http.Request) {
	upload, err := h.navUC.Tree(r.Context(), chi.URLParam(r, "treeID"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	text, err := outline.String(upload.Tree())
	if err != nil {
		h.log.Errorf("outline of tree %s: %v", upload.ID, err)
		httpresponse.WriteInternalErrorResponse(w)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, text)
}

func (h *NavigatorHandler) HandleStartSession(w http.ResponseWriter, r *http.Request) {
	var req session.CreateRequest
	if err := utils.DecodeJSONRequest(w, r, &req, h.cfg.MaxRequestBytes); err != nil {
		h.writeDecodeError(w, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		httpresponse.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	view, err := h.navUC.StartSession(r.Context(), req.TreeID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusCreated, view)
}

func (h *NavigatorHandler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.navUC.State(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, view)
}

func (h *NavigatorHandler) HandleCloseSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := h.navUC.CloseSession(r.Context(), sessionID); err != nil {
		h.writeError(w, err)
		return
	}
	h.hub.closeSession(sessionID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *NavigatorHandler) HandleChoose(w http.ResponseWriter, r *http.Request) {
	var req session.ChooseRequest
	if err := utils.DecodeJSONRequest(w, r, &req, h.cfg.MaxRequestBytes); err != nil {
		h.writeDecodeError(w, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		httpresponse.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	view, err := h.navUC.Choose(r.Context(), chi.URLParam(r, "sessionID"), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.hub.broadcast(view)
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, view)
}

func (h *NavigatorHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	view, err := h.navUC.Reset(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.hub.broadcast(view)
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, view)
}

func (h *NavigatorHandler) HandleReplaceTree(w http.ResponseWriter, r *http.Request) {
	name, source, err := h.readSource(w, r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	view, err := h.navUC.ReplaceTree(r.Context(), chi.URLParam(r, "sessionID"), name, source)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.hub.broadcast(view)
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, view)
}

func (h *NavigatorHandler) HandleReport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.navUC.Report(r.Context(), chi.URLParam(r, "sessionID"), &buf); err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="path.pdf"`)
	_, _ = w.Write(buf.Bytes())
}

// watchCommand is a client message on the websocket. Reset wins over a choice.
type watchCommand struct {
	session.ChooseRequest
	Reset bool `json:"reset,omitempty"`
}

type watchError struct {
	Error string `json:"error"`
}

// HandleWatch streams the session view on every change and accepts answers
// over the same connection.
func (h *NavigatorHandler) HandleWatch(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	view, err := h.navUC.State(r.Context(), sessionID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("upgrade error:", err)
		return
	}
	conn.SetReadLimit(h.cfg.MaxRequestBytes)
	client := h.hub.join(sessionID, conn)
	defer func() {
		h.hub.leave(sessionID, client)
		conn.Close()
	}()

	if err := client.send(view); err != nil {
		return
	}

	for {
		var cmd watchCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			h.log.Debugf("watcher of session %s left: %v", sessionID, err)
			return
		}

		if cmd.Reset {
			view, err = h.navUC.Reset(r.Context(), sessionID)
		} else if err = validate.Struct(cmd.ChooseRequest); err == nil {
			view, err = h.navUC.Choose(r.Context(), sessionID, cmd.ChooseRequest)
		}
		if err != nil {
			if sendErr := client.send(watchError{Error: err.Error()}); sendErr != nil {
				return
			}
			continue
		}
		h.hub.broadcast(view)
	}
}

func (h *NavigatorHandler) readSource(w http.ResponseWriter, r *http.Request) (string, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(h.cfg.MaxUploadBytes); err != nil {
			return "", "", uploadError(err)
		}
		file, header, err := r.FormFile("file")
		if errors.Is(err, http.ErrMissingFile) {
			return "", "", errs.ErrEmptyUpload
		} else if err != nil {
			return "", "", uploadError(err)
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return "", "", uploadError(err)
		}
		return header.Filename, string(data), nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return "", "", uploadError(err)
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		name = defaultUploadName
	}
	return name, string(data), nil
}

func uploadError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return errs.ErrUploadTooLarge
	}
	return err
}

func (h *NavigatorHandler) writeDecodeError(w http.ResponseWriter, err error) {
	if errors.Is(err, errs.ErrRequestTooLarge) {
		h.writeError(w, err)
		return
	}
	httpresponse.WriteError(w, http.StatusBadRequest, err.Error())
}

func (h *NavigatorHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errs.ErrTreeNotFound), errors.Is(err, errs.ErrSessionNotFound):
		httpresponse.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, errs.ErrInvalidChoice), errors.Is(err, errs.ErrTreeTooDeep):
		httpresponse.WriteError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, errs.ErrEmptyUpload):
		httpresponse.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, errs.ErrUploadTooLarge), errors.Is(err, errs.ErrRequestTooLarge):
		httpresponse.WriteError(w, http.StatusRequestEntityTooLarge, err.Error())
	default:
		h.log.Error(err)
		httpresponse.WriteInternalErrorResponse(w)
	}
}
