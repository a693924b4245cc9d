package files

import (
	"crypto/sha1"
	"encoding/hex"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSigner() *CloudinarySigner {
	s := NewCloudinarySigner(CloudinaryConfig{CloudName: "demo", APISecret: "s3cret", BaseFolder: "bidout-auction-v8/"})
	s.now = func() time.Time { return time.Unix(1700000000, 0) }
	return s
}

func TestCloudinarySigner_SignUpload(t *testing.T) {
	s := newTestSigner()
	id := uuid.MustParse("3f1c2b9e-6a55-4d7c-9f7e-0e4e3b1a2c5d")

	sig, err := s.SignUpload(FolderListings, id)
	require.NoError(t, err)

	wantID := "bidout-auction-v8/listings/3f1c2b9e-6a55-4d7c-9f7e-0e4e3b1a2c5d"
	sum := sha1.Sum([]byte("public_id=" + wantID + "&timestamp=1700000000s3cret"))

	assert.Equal(t, wantID, sig.PublicID)
	assert.Equal(t, int64(1700000000), sig.Timestamp)
	assert.Equal(t, hex.EncodeToString(sum[:]), sig.Signature)
}

func TestCloudinarySigner_URL(t *testing.T) {
	s := newTestSigner()
	id := uuid.MustParse("3f1c2b9e-6a55-4d7c-9f7e-0e4e3b1a2c5d")

	tests := []struct {
		name        string
		fileID      *uuid.UUID
		contentType string
		want        string
	}{
		{
			name:        "jpeg maps to jpg",
			fileID:      &id,
			contentType: "image/jpeg",
			want:        "https://res.cloudinary.com/demo/image/upload/bidout-auction-v8/listings/3f1c2b9e-6a55-4d7c-9f7e-0e4e3b1a2c5d.jpg",
		},
		{name: "no file", fileID: nil, contentType: "image/png", want: ""},
		{name: "unknown type", fileID: &id, contentType: "application/pdf", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.URL(FolderListings, tt.fileID, tt.contentType))
		})
	}
}
