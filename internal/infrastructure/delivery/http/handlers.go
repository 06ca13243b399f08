package httprouter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"

	"titan/internal/consts"
	"titan/internal/errs"
	"titan/internal/infrastructure/delivery/http/request"
	"titan/internal/infrastructure/delivery/http/response"
	"titan/internal/service"
)

const maxBodyBytes = 64 << 10

// DownloadHint is attached to failed downloads.
type DownloadHint struct {
	Hint string `json:"hint"`
}

// Purged reports a manual purge.
type Purged struct {
	Removed int `json:"removed"`
}

func (r *Router) Readyz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (r *Router) Qualities(w http.ResponseWriter, _ *http.Request) {
	response.OK(w, consts.RespQualitiesRetrieved, r.svc.Catalog(), nil)
}

// Download runs a download synchronously and answers once the file is ready.
func (r *Router) Download(w http.ResponseWriter, req *http.Request) {
	log := r.log.With(slog.String("handler", "Download"))
	ctx := req.Context()

	var in request.Download
	if err := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxBodyBytes)).Decode(&in); err != nil {
		log.ErrorContext(ctx, consts.RespInvalidRequestBody, slog.Any("error", err))
		response.BadRequest(w, consts.RespInvalidRequestBody, err)

		return
	}

	if err := in.Validate(r.validate); err != nil {
		log.ErrorContext(ctx, consts.RespUnprocessableEntity, slog.Any("error", err))
		response.UnprocessableEntity(w, consts.RespUnprocessableEntity, nil, err)

		return
	}

	download, err := r.svc.Download(ctx, service.DownloadRequest{
		URL:     in.URL,
		Type:    in.Type,
		Quality: in.Quality,
	})

	switch {
	case err == nil:
		response.OK(w, consts.RespDownloadFinished, download, nil)
	case errors.Is(err, errs.ErrInvalidURL),
		errors.Is(err, errs.ErrInvalidMediaKind),
		errors.Is(err, errs.ErrInvalidQualityLabel):
		log.ErrorContext(ctx, consts.RespUnprocessableEntity, slog.Any("error", err))
		response.UnprocessableEntity(w, consts.RespUnprocessableEntity, nil, err)
	case errors.Is(err, errs.ErrJobInProgress):
		log.WarnContext(ctx, consts.RespJobInProgress)
		response.Conflict(w, consts.RespJobInProgress, err)
	case errors.Is(err, errs.ErrHistoryAppend):
		response.InternalServerError(w, consts.RespHistoryAppendFailed, download, err)
	case errors.Is(err, errs.ErrJobCancelled):
		log.InfoContext(ctx, "client went away before the download finished", slog.Any("error", err))
	case errors.Is(err, context.DeadlineExceeded):
		response.GatewayTimeout(w, consts.RespDownloadFailed, DownloadHint{Hint: consts.RespDownloadHint}, err)
	case errors.Is(err, errs.ErrExtractionFailed):
		response.BadGateway(w, consts.RespDownloadFailed, DownloadHint{Hint: consts.RespDownloadHint}, err)
	default:
		log.ErrorContext(ctx, consts.RespDownloadFailed, slog.Any("error", err))
		response.InternalServerError(w, consts.RespDownloadFailed, nil, err)
	}
}

// File serves a finished download as an attachment.
func (r *Router) File(w http.ResponseWriter, req *http.Request) {
	name := req.PathValue("name")

	path, err := r.svc.File(name)
	if err != nil {
		r.log.DebugContext(req.Context(), consts.RespFileNotFound, slog.String("name", name), slog.Any("error", err))
		response.NotFound(w, consts.RespFileNotFound, err)

		return
	}

	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	http.ServeFile(w, req, path)
}

func (r *Router) PurgeFiles(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := r.withTimeout(req)
	defer cancel()

	n, err := r.svc.PurgeDownloads(ctx)
	if err != nil {
		r.log.ErrorContext(ctx, consts.RespFilesPurgeFailed, slog.Any("error", err))
		response.InternalServerError(w, consts.RespFilesPurgeFailed, nil, err)

		return
	}

	response.OK(w, consts.RespFilesPurged, Purged{Removed: n}, nil)
}

func (r *Router) History(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := r.withTimeout(req)
	defer cancel()

	records, err := r.svc.History(ctx)
	if err != nil {
		r.log.ErrorContext(ctx, consts.RespHistoryListFailed, slog.Any("error", err))
		response.InternalServerError(w, consts.RespHistoryListFailed, nil, err)

		return
	}

	response.OK(w, consts.RespHistoryRetrieved, records, nil)
}

func (r *Router) WipeHistory(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := r.withTimeout(req)
	defer cancel()

	if err := r.svc.WipeHistory(ctx); err != nil {
		r.log.ErrorContext(ctx, consts.RespHistoryWipeFailed, slog.Any("error", err))
		response.InternalServerError(w, consts.RespHistoryWipeFailed, nil, err)

		return
	}

	response.OK(w, consts.RespHistoryWiped, nil, nil)
}
