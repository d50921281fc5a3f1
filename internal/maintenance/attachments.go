package maintenance

import (
	"context"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/gearguard/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Upload is an attachment file on its way in.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
	UploadedBy  primitive.ObjectID
}

func attachmentKey(request primitive.ObjectID, filename string) string {
	ext := strings.ToLower(path.Ext(path.Base(strings.ReplaceAll(filename, "\\", "/"))))
	return "requests/" + request.Hex() + "/" + uuid.NewString() + ext
}

// AddAttachment stores the uploaded file and records it on the request.
func (s *Service) AddAttachment(ctx context.Context, id string, up Upload) (*models.RequestDetail, error) {
	if s.blobs == nil {
		return nil, internal(nil, "attachment storage is not configured")
	}
	oid, err := ParseID("id", id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(up.Filename) == "" {
		return nil, invalid("file is required")
	}
	if _, err := s.store.Requests.FindRequestByID(ctx, oid); err != nil {
		return nil, fromStore(err, "maintenance request")
	}

	key := attachmentKey(oid, up.Filename)
	contentType := up.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := s.blobs.Put(ctx, key, up.Body, up.Size, contentType); err != nil {
		return nil, fromBlob(err)
	}

	now := s.now()
	a := models.Attachment{
		ID:           primitive.NewObjectID(),
		Filename:     path.Base(key),
		OriginalName: up.Filename,
		Path:         key,
		ContentType:  contentType,
		Size:         up.Size,
		UploadedBy:   up.UploadedBy,
		UploadedAt:   now,
	}
	updated, err := s.store.Requests.PushAttachment(ctx, oid, a, now)
	if err != nil {
		if derr := s.blobs.Delete(ctx, key); derr != nil {
			log.WithError(derr).WithField("key", key).Warn("Failed to remove orphaned attachment content")
		}
		return nil, fromStore(err, "maintenance request")
	}
	return s.requestDetail(ctx, updated)
}

// OpenAttachment returns an attachment's metadata and content. The caller
// closes the reader.
func (s *Service) OpenAttachment(ctx context.Context, id, attachmentID string) (*models.Attachment, io.ReadCloser, error) {
	if s.blobs == nil {
		return nil, nil, internal(nil, "attachment storage is not configured")
	}
	oid, err := ParseID("id", id)
	if err != nil {
		return nil, nil, err
	}
	aid, err := ParseID("attachmentId", attachmentID)
	if err != nil {
		return nil, nil, err
	}
	r, err := s.store.Requests.FindRequestByID(ctx, oid)
	if err != nil {
		return nil, nil, fromStore(err, "maintenance request")
	}
	a, ok := r.Attachment(aid)
	if !ok {
		return nil, nil, notFound("attachment not found")
	}
	body, err := s.blobs.Get(ctx, a.Path)
	if err != nil {
		return nil, nil, fromBlob(err)
	}
	return a, body, nil
}
