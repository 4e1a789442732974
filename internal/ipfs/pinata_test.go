package ipfs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/credzi/credzi/internal/model"
)

func TestBuildMetadataDefaults(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	meta := BuildMetadata(MetadataInput{
		LearnerName:      "Ada Lovelace",
		CourseName:       "Distributed Systems",
		OrganizationName: "Example Academy",
	}, "https://credzi.example.com", now)

	assert.Equal(t, "arc69", meta.Standard)
	assert.Equal(t, "Certificate of completion for Distributed Systems", meta.Description)
	assert.Equal(t, "https://credzi.example.com/verify", meta.ExternalURL)
	assert.Equal(t, "course_completion", meta.Properties.CertificateType)
	assert.Equal(t, "2026-03-15T10:00:00Z", meta.Properties.IssueDate)
	assert.Equal(t, "2026-03-15T10:00:00Z", meta.Properties.ValidFrom)
	assert.Empty(t, meta.Properties.ValidUntil)
	assert.NotNil(t, meta.Properties.Skills, "skills must serialize as [], not null")
	assert.Empty(t, meta.Properties.Skills)
}

func TestBuildMetadataOptionalFields(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	until := now.AddDate(2, 0, 0)
	score := 93.5

	meta := BuildMetadata(MetadataInput{
		LearnerName:      "Ada Lovelace",
		CourseName:       "Distributed Systems",
		OrganizationName: "Example Academy",
		Description:      "Completed with distinction",
		Skills:           []string{"raft", "gossip"},
		Grade:            "A",
		Score:            &score,
		ValidUntil:       &until,
	}, "https://credzi.example.com", now)

	assert.Equal(t, "Completed with distinction", meta.Description)
	assert.Equal(t, []string{"raft", "gossip"}, meta.Properties.Skills)
	assert.Equal(t, "A", meta.Properties.Grade)
	require.NotNil(t, meta.Properties.Score)
	assert.Equal(t, 93.5, *meta.Properties.Score)
	assert.Equal(t, "2028-03-15T10:00:00Z", meta.Properties.ValidUntil)
}

func TestPinJSON(t *testing.T) {
	var gotAuth [2]string
	var gotPayload map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth[0] = r.Header.Get("pinata_api_key")
		gotAuth[1] = r.Header.Get("pinata_secret_api_key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		_ = json.NewEncoder(w).Encode(map[string]string{"IpfsHash": "QmPinned"})
	}))
	defer srv.Close()

	p := NewPinner("key", "secret", srv.URL, "")
	meta := BuildMetadata(MetadataInput{
		LearnerName:      "Ada Lovelace",
		CourseName:       "Distributed Systems",
		OrganizationName: "Example Academy",
	}, "https://credzi.example.com", time.Now())

	hash, err := p.PinJSON(context.Background(), meta)
	require.NoError(t, err)
	assert.Equal(t, "QmPinned", hash)
	assert.Equal(t, "key", gotAuth[0])
	assert.Equal(t, "secret", gotAuth[1])
	assert.Contains(t, gotPayload, "pinataContent")
	assert.Contains(t, gotPayload, "pinataMetadata")
}

func TestPinJSONWithoutCredentials(t *testing.T) {
	p := NewPinner("", "", "", "")
	_, err := p.PinJSON(context.Background(), model.ARC69Metadata{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestPinJSONRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Invalid API key"}`))
	}))
	defer srv.Close()

	p := NewPinner("key", "secret", srv.URL, "")
	_, err := p.PinJSON(context.Background(), model.ARC69Metadata{})

	var upErr *UploadError
	require.True(t, errors.As(err, &upErr))
	assert.Equal(t, http.StatusUnauthorized, upErr.Status)
	assert.Contains(t, upErr.Body, "Invalid API key")
}

func TestFetchMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/QmPinned", r.URL.Path)
		_ = json.NewEncoder(w).Encode(model.ARC69Metadata{
			Standard: "arc69",
			Properties: model.ARC69Properties{
				LearnerName: "Ada Lovelace",
				CourseName:  "Distributed Systems",
			},
		})
	}))
	defer srv.Close()

	p := NewPinner("", "", "", srv.URL)
	meta, err := p.FetchMetadata(context.Background(), "QmPinned")
	require.NoError(t, err)
	assert.Equal(t, "arc69", meta.Standard)
	assert.Equal(t, "Ada Lovelace", meta.Properties.LearnerName)
}

func TestFetchMetadataGatewayFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGatewayTimeout)
	}))
	defer srv.Close()

	p := NewPinner("", "", "", srv.URL)
	_, err := p.FetchMetadata(context.Background(), "QmPinned")
	assert.Error(t, err)
}

func TestGatewayURL(t *testing.T) {
	p := NewPinner("", "", "", "")
	assert.Equal(t, "https://gateway.pinata.cloud/ipfs/QmPinned", p.GatewayURL("QmPinned"))
}
