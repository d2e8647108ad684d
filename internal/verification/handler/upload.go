package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/google/uuid"

	"penny/internal/account"
	"penny/internal/platform/middleware"
	"penny/internal/verification"
	dErrors "penny/pkg/domain-errors"
	"penny/pkg/platform/httputil"
	"penny/pkg/requestcontext"
)

const archiveTimeout = 10 * time.Second

var (
	documentFields = []string{"document", "file"}
	selfieFields   = []string{"selfie"}
)

type upload struct {
	content     []byte
	contentType string
}

// HandleUpload runs one verification attempt for the session's customer.
// The run is detached from the request so a client that goes away does not
// abort a verification that may already have created the account.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	customer := requestcontext.CustomerEmail(ctx)

	if r.ContentLength > h.maxUploadBytes {
		h.writeTooLarge(w)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		h.logger.WarnContext(ctx, "failed to parse upload",
			"request_id", requestID,
			"error", err,
		)
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.writeTooLarge(w)
			return
		}
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Please upload your ID document and a selfie."))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	document, err := readPart(r.MultipartForm, documentFields...)
	if err != nil {
		h.writeReadError(w, r, err)
		return
	}
	selfie, err := readPart(r.MultipartForm, selfieFields...)
	if err != nil {
		h.writeReadError(w, r, err)
		return
	}
	if len(document.content) == 0 || len(selfie.content) == 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, verification.CustomerMessage(verification.Result{
			Outcome: verification.OutcomeFailed,
			Reason:  verification.ReasonMissingInput,
		})))
		return
	}

	accountType, err := account.ParseType(formValue(r.MultipartForm, "account_type"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeValidation,
			fmt.Sprintf("Please choose a %s or %s account.", account.TypeChecking, account.TypeSavings)))
		return
	}

	runCtx := context.WithoutCancel(ctx)
	h.archiveUpload(runCtx, document, selfie)

	res := h.verifier.Verify(runCtx, verification.VerificationRequest{
		DocumentImage: document.content,
		FaceImage:     selfie.content,
		CustomerEmail: customer,
		Declared: verification.DeclaredDetails{
			FirstName: formValue(r.MultipartForm, "first_name"),
			LastName:  formValue(r.MultipartForm, "last_name"),
		},
		AccountType: accountType,
	})

	status := verification.CustomerStatus(res)
	message := verification.CustomerMessage(res)
	if status == verification.StatusFailed {
		h.logger.ErrorContext(ctx, "verification could not complete",
			"request_id", requestID,
			"attempt_id", res.AttemptID,
			"reason", res.Reason,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnavailable, message))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, &UploadResponse{
		Message: message,
		Status:  status,
	})
}

func (h *Handler) writeTooLarge(w http.ResponseWriter) {
	httputil.WriteError(w, dErrors.New(dErrors.CodePayloadTooLarge,
		fmt.Sprintf("Your images are too large. Please upload files under %d MB in total.", h.maxUploadBytes>>20)))
}

func (h *Handler) writeReadError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	h.logger.WarnContext(ctx, "failed to read uploaded file",
		"request_id", middleware.GetRequestID(ctx),
		"error", err,
	)
	httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "We could not read the uploaded files. Please try again."))
}

// archiveUpload is best effort: verification proceeds whether or not the
// copies were stored.
func (h *Handler) archiveUpload(ctx context.Context, document, selfie upload) {
	if h.archive == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, archiveTimeout)
	defer cancel()

	prefix := fmt.Sprintf("uploads/%s/%s", requestcontext.SessionID(ctx), uuid.NewString())
	for name, u := range map[string]upload{"document": document, "selfie": selfie} {
		if err := h.archive.Archive(ctx, prefix+"/"+name, u.content, u.contentType); err != nil {
			h.logger.WarnContext(ctx, "failed to archive upload",
				"request_id", requestcontext.RequestID(ctx),
				"part", name,
				"error", err,
			)
		}
	}
}

// readPart returns the first file found under any of the given field names.
// A missing field yields an empty upload.
func readPart(form *multipart.Form, fields ...string) (upload, error) {
	for _, field := range fields {
		headers := form.File[field]
		if len(headers) == 0 {
			continue
		}
		f, err := headers[0].Open()
		if err != nil {
			return upload{}, err
		}
		defer f.Close()

		content, err := io.ReadAll(f)
		if err != nil {
			return upload{}, err
		}
		contentType := headers[0].Header.Get("Content-Type")
		if contentType == "" {
			contentType = http.DetectContentType(content)
		}
		return upload{content: content, contentType: contentType}, nil
	}
	return upload{}, nil
}

func formValue(form *multipart.Form, field string) string {
	if values := form.Value[field]; len(values) > 0 {
		return values[0]
	}
	return ""
}
