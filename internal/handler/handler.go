package handler

import (
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/S1riyS/ghost-vfs/internal/models"
	"github.com/S1riyS/ghost-vfs/internal/pkg/kerrors"
	"github.com/S1riyS/ghost-vfs/internal/service"
	"github.com/S1riyS/ghost-vfs/internal/tasking"
	"github.com/S1riyS/ghost-vfs/pkg/binary"
	"github.com/S1riyS/ghost-vfs/pkg/logging"
	"github.com/S1riyS/ghost-vfs/pkg/logging/slogext"
	"github.com/google/uuid"
)

// MaxIOLength bounds the buffer of a single read or write request.
const MaxIOLength = 1 << 20

var errBadRequest = errors.New("bad request")

// Handler exposes syscalls over HTTP. A session is a user process created
// by /api/init; every request runs on a fresh thread of that process.
type Handler struct {
	service service.FileSystemService
	tasking *tasking.Tasking

	mu       sync.RWMutex
	sessions map[string]*tasking.Process
}

func NewHandler(service service.FileSystemService, tk *tasking.Tasking) *Handler {
	return &Handler{
		service:  service,
		tasking:  tk,
		sessions: make(map[string]*tasking.Process),
	}
}

// thread starts a thread in the session named by the token parameter. The
// caller must release it with done.
func (h *Handler) thread(r *http.Request) (*tasking.Thread, error) {
	token := r.URL.Query().Get("token")
	if token == "" {
		return nil, errBadRequest
	}

	h.mu.RLock()
	p, ok := h.sessions[token]
	h.mu.RUnlock()
	if !ok {
		return nil, errBadRequest
	}
	return h.tasking.CreateThread(p), nil
}

func (h *Handler) done(th *tasking.Thread) {
	h.tasking.ExitThread(th)
}

func queryFD(r *http.Request) (models.FD, error) {
	v, err := strconv.ParseInt(r.URL.Query().Get("fd"), 10, 32)
	if err != nil {
		return 0, errBadRequest
	}
	return models.FD(v), nil
}

func queryLength(r *http.Request) (int64, error) {
	v, err := strconv.ParseInt(r.URL.Query().Get("len"), 10, 64)
	if err != nil || v < 0 || v > MaxIOLength {
		return 0, errBadRequest
	}
	return v, nil
}

// HandleInit creates a session. The token is generated when omitted and
// returned as the payload.
func (h *Handler) HandleInit(w http.ResponseWriter, r *http.Request) {
	const op = "handler.HandleInit"

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	logger := logging.GetLoggerFromContextWithOp(r.Context(), op)

	token := r.URL.Query().Get("token")
	if token == "" {
		token = uuid.New().String()
	}
	workingDir := r.URL.Query().Get("cwd")
	if workingDir == "" {
		workingDir = "/"
	}

	h.mu.Lock()
	if _, ok := h.sessions[token]; ok {
		h.mu.Unlock()
		binary.WriteResponse(w, -kerrors.EEXIST, nil)
		return
	}
	p := h.tasking.CreateProcess(models.SecurityLevelUser, workingDir)
	h.sessions[token] = p
	h.mu.Unlock()

	logger.Info("Session created", slog.String("token", token), slog.Any("pid", p.ID))
	binary.WriteResponse(w, 0, []byte(token))
}

// HandleExit ends a session and releases its descriptors.
func (h *Handler) HandleExit(w http.ResponseWriter, r *http.Request) {
	const op = "handler.HandleExit"

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	token := r.URL.Query().Get("token")

	h.mu.Lock()
	p, ok := h.sessions[token]
	delete(h.sessions, token)
	h.mu.Unlock()
	if !ok {
		binary.WriteResponse(w, kerrors.EINVAL_NEG, nil)
		return
	}

	if err := h.tasking.KillProcess(p.ID); err != nil {
		logging.GetLoggerFromContextWithOp(r.Context(), op).Error("Failed to kill session process", slogext.Err(err))
		binary.WriteResponse(w, kerrors.Code(err), nil)
		return
	}
	binary.WriteResponse(w, 0, nil)
}

func (h *Handler) HandleOpen(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := r.URL.Query().Get("path")
	if path == "" {
		binary.WriteResponse(w, kerrors.EINVAL_NEG, nil)
		return
	}
	th, err := h.thread(r)
	if err != nil {
		binary.WriteResponse(w, kerrors.EINVAL_NEG, nil)
		return
	}
	defer h.done(th)
	ctx = logging.MakeContextWithThread(ctx, uint32(th.ID))

	call := &models.OpenCall{Path: path}
	if err := h.service.Open(ctx, th, call); err != nil {
		binary.WriteResponse(w, kerrors.Code(err), nil)
		return
	}

	binary.WriteInt64Response(w, kerrors.OpenCode(call.Status), int64(call.FD))
}

func (h *Handler) HandleRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	const op = "handler.HandleRead"

	logger := logging.GetLoggerFromContextWithOp(ctx, op)

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	fd, err := queryFD(r)
	if err != nil {
		binary.WriteResponse(w, kerrors.EINVAL_NEG, nil)
		return
	}
	length, err := queryLength(r)
	if err != nil {
		binary.WriteResponse(w, kerrors.EINVAL_NEG, nil)
		return
	}
	th, err := h.thread(r)
	if err != nil {
		binary.WriteResponse(w, kerrors.EINVAL_NEG, nil)
		return
	}
	defer h.done(th)
	ctx = logging.MakeContextWithThread(ctx, uint32(th.ID))

	call := &models.ReadCall{FD: fd, Buffer: make([]byte, length), Length: length}
	if err := h.service.Read(ctx, th, call); err != nil {
		binary.WriteResponse(w, kerrors.Code(err), nil)
		return
	}

	code := kerrors.ReadCode(call.Status)
	if code != 0 {
		logger.Debug("Read failed", slog.Any("fd", fd), slog.Int64("error_code", code))
		binary.WriteResponse(w, code, nil)
		return
	}
	binary.WriteResponse(w, 0, call.Buffer[:call.Result])
}

func (h *Handler) HandleWrite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	const op = "handler.HandleWrite"

	logger := logging.GetLoggerFromContextWithOp(ctx, op)

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	fd, err := queryFD(r)
	if err != nil {
		binary.WriteResponse(w, kerrors.EINVAL_NEG, nil)
		return
	}
	length, err := queryLength(r)
	if err != nil {
		binary.WriteResponse(w, kerrors.EINVAL_NEG, nil)
		return
	}
	data, err := base64.StdEncoding.DecodeString(r.URL.Query().Get("data"))
	if err != nil {
		logger.Warn("Failed to decode base64 data", slogext.Err(err))
		binary.WriteResponse(w, kerrors.EINVAL_NEG, nil)
		return
	}
	if int64(len(data)) < length {
		logger.Warn("Buffer size is less than requested length",
			slog.Int64("requested_length", length),
			slog.Int("buffer_size", len(data)))
		binary.WriteResponse(w, kerrors.EINVAL_NEG, nil)
		return
	}
	th, err := h.thread(r)
	if err != nil {
		binary.WriteResponse(w, kerrors.EINVAL_NEG, nil)
		return
	}
	defer h.done(th)
	ctx = logging.MakeContextWithThread(ctx, uint32(th.ID))

	call := &models.WriteCall{FD: fd, Buffer: data, Length: length}
	if err := h.service.Write(ctx, th, call); err != nil {
		binary.WriteResponse(w, kerrors.Code(err), nil)
		return
	}

	binary.WriteInt64Response(w, kerrors.WriteCode(call.Status), call.Result)
}

func (h *Handler) HandleClose(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	fd, err := queryFD(r)
	if err != nil {
		binary.WriteResponse(w, kerrors.EINVAL_NEG, nil)
		return
	}
	th, err := h.thread(r)
	if err != nil {
		binary.WriteResponse(w, kerrors.EINVAL_NEG, nil)
		return
	}
	defer h.done(th)
	ctx = logging.MakeContextWithThread(ctx, uint32(th.ID))

	call := &models.CloseCall{FD: fd}
	if err := h.service.Close(ctx, th, call); err != nil {
		binary.WriteResponse(w, kerrors.Code(err), nil)
		return
	}
	binary.WriteResponse(w, kerrors.CloseCode(call.Status), nil)
}

// HandleLength queries by path, or by descriptor when path is omitted.
func (h *Handler) HandleLength(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	call := &models.LengthCall{Path: r.URL.Query().Get("path"), FollowSymlinks: true}
	if call.Path == "" {
		fd, err := queryFD(r)
		if err != nil {
			binary.WriteResponse(w, kerrors.EINVAL_NEG, nil)
			return
		}
		call.FD = fd
	}
	th, err := h.thread(r)
	if err != nil {
		binary.WriteResponse(w, kerrors.EINVAL_NEG, nil)
		return
	}
	defer h.done(th)
	ctx = logging.MakeContextWithThread(ctx, uint32(th.ID))

	if err := h.service.Length(ctx, th, call); err != nil {
		binary.WriteResponse(w, kerrors.Code(err), nil)
		return
	}
	binary.WriteInt64Response(w, kerrors.LengthCode(call.Status), call.Length)
}

// HandleStat stats a path, or a descriptor when path is omitted.
func (h *Handler) HandleStat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	const op = "handler.HandleStat"

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := r.URL.Query().Get("path")
	var fd models.FD
	if path == "" {
		var err error
		if fd, err = queryFD(r); err != nil {
			binary.WriteResponse(w, kerrors.EINVAL_NEG, nil)
			return
		}
	}
	th, err := h.thread(r)
	if err != nil {
		binary.WriteResponse(w, kerrors.EINVAL_NEG, nil)
		return
	}
	defer h.done(th)
	ctx = logging.MakeContextWithThread(ctx, uint32(th.ID))

	var (
		attrs  models.StatAttributes
		status models.StatStatus
	)
	if path != "" {
		call := &models.StatCall{Path: path, FollowSymlinks: true}
		err = h.service.Stat(ctx, th, call)
		attrs, status = call.Attributes, call.Status
	} else {
		call := &models.FstatCall{FD: fd}
		err = h.service.Fstat(ctx, th, call)
		attrs, status = call.Attributes, call.Status
	}
	if err != nil {
		binary.WriteResponse(w, kerrors.Code(err), nil)
		return
	}

	code := kerrors.StatCode(status)
	if code != 0 {
		binary.WriteResponse(w, code, nil)
		return
	}
	data, err := binary.EncodeStat(attrs)
	if err != nil {
		logging.GetLoggerFromContextWithOp(ctx, op).Error("Failed to encode attributes", slogext.Err(err))
		binary.WriteResponse(w, kerrors.ENOMEM_NEG, nil)
		return
	}
	binary.WriteResponse(w, 0, data)
}

// HandleReadDirectory returns the entry at offset of the directory at path.
func (h *Handler) HandleReadDirectory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	const op = "handler.HandleReadDirectory"

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := r.URL.Query().Get("path")
	offset, err := strconv.Atoi(r.URL.Query().Get("offset"))
	if path == "" || err != nil || offset < 0 {
		binary.WriteResponse(w, kerrors.EINVAL_NEG, nil)
		return
	}
	th, err := h.thread(r)
	if err != nil {
		binary.WriteResponse(w, kerrors.EINVAL_NEG, nil)
		return
	}
	defer h.done(th)
	ctx = logging.MakeContextWithThread(ctx, uint32(th.ID))

	dir := &models.OpenDirectoryCall{Path: path}
	if err := h.service.OpenDirectory(ctx, th, dir); err != nil {
		binary.WriteResponse(w, kerrors.Code(err), nil)
		return
	}
	if code := kerrors.OpenDirectoryCode(dir.Status); code != 0 {
		binary.WriteResponse(w, code, nil)
		return
	}

	dir.Iterator.Position = offset
	call := &models.ReadDirectoryCall{Iterator: dir.Iterator}
	if err := h.service.ReadDirectory(ctx, th, call); err != nil {
		binary.WriteResponse(w, kerrors.Code(err), nil)
		return
	}
	if code := kerrors.ReadDirectoryCode(call.Status); code != 0 {
		binary.WriteResponse(w, code, nil)
		return
	}

	data, err := binary.EncodeDirectoryEntry(dir.Iterator.Entry)
	if err != nil {
		logging.GetLoggerFromContextWithOp(ctx, op).Error("Failed to encode entry", slogext.Err(err))
		binary.WriteResponse(w, kerrors.ENOMEM_NEG, nil)
		return
	}
	binary.WriteResponse(w, 0, data)
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	response := `{"status":"ok","service":"ghost-vfs"}`
	w.Write([]byte(response))
}
