// Package files signs direct-to-storage image uploads and derives public
// image URLs. Image bytes never pass through this service.
package files

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/google/uuid"

	"github.com/floroz/bidout/internal/domain/listings"
)

// Upload folders under the base folder.
const (
	FolderListings = "listings"
	FolderAvatars  = "avatars"
)

// UploadSignature is what a client needs to upload straight to Cloudinary.
type UploadSignature struct {
	PublicID  string `json:"public_id"`
	Signature string `json:"signature"`
	Timestamp int64  `json:"timestamp"`
}

type CloudinaryConfig struct {
	CloudName  string
	APISecret  string
	BaseFolder string
}

type CloudinarySigner struct {
	cfg CloudinaryConfig
	now func() time.Time
}

func NewCloudinarySigner(cfg CloudinaryConfig) *CloudinarySigner {
	return &CloudinarySigner{cfg: cfg, now: time.Now}
}

func (s *CloudinarySigner) publicID(folder, key string) string {
	return s.cfg.BaseFolder + folder + "/" + key
}

// SignUpload signs an upload of fileID into folder with the API secret.
func (s *CloudinarySigner) SignUpload(folder string, fileID uuid.UUID) (*UploadSignature, error) {
	publicID := s.publicID(folder, fileID.String())
	ts := s.now().Unix()

	params := url.Values{}
	params.Set("public_id", publicID)
	params.Set("timestamp", strconv.FormatInt(ts, 10))
	signature, err := api.SignParameters(params, s.cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign upload: %w", err)
	}

	return &UploadSignature{PublicID: publicID, Signature: signature, Timestamp: ts}, nil
}

// URL returns the public delivery URL of an uploaded image, or "" when the
// file id is unset or the content type is not an accepted image type.
func (s *CloudinarySigner) URL(folder string, fileID *uuid.UUID, contentType string) string {
	if fileID == nil {
		return ""
	}
	ext, ok := listings.AllowedImageTypes[contentType]
	if !ok {
		return ""
	}
	u := url.URL{
		Scheme: "https",
		Host:   "res.cloudinary.com",
		Path:   fmt.Sprintf("/%s/image/upload/%s", s.cfg.CloudName, s.publicID(folder, fileID.String()+ext)),
	}
	return u.String()
}
