package dispatch

import (
	"context"
	"fmt"
	"mime"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"whatsapp-crm/internal/models"
	"whatsapp-crm/internal/storage"
	"whatsapp-crm/internal/whatsapp"
)

// MediaRef is a raw media reference: a provider media id or an external
// link.
type MediaRef struct {
	ID   string
	Link string
}

// ResolvedMedia is one classified, re-hosted media item.
type ResolvedMedia struct {
	Ref       MediaRef
	Type      string // image, video, audio, document
	MimeType  string
	StoredURL string // empty when the re-host upload failed (non-fatal)
}

// MediaAPI is the provider surface the resolver needs.
type MediaAPI interface {
	GetMediaMetadata(ctx context.Context, mediaID string) (*whatsapp.MediaMetadata, error)
	DownloadMedia(ctx context.Context, url string, authenticated bool) ([]byte, string, error)
}

// MediaResolver fetches metadata, classifies, downloads and re-hosts media
// binaries so the inbox can replay them later.
type MediaResolver struct {
	provider MediaAPI
	store    storage.ObjectStore // nil disables re-hosting
	prefix   string              // tenant prefix for stored paths
}

func NewMediaResolver(provider MediaAPI, store storage.ObjectStore, prefix string) *MediaResolver {
	return &MediaResolver{provider: provider, store: store, prefix: prefix}
}

// classifyMime maps a MIME type onto the message media classes.
func classifyMime(mimeType string) (string, error) {
	base := strings.ToLower(strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0]))
	switch {
	case strings.HasPrefix(base, "image/"):
		return models.MediaImage, nil
	case strings.HasPrefix(base, "video/"):
		return models.MediaVideo, nil
	case strings.HasPrefix(base, "audio/"):
		return models.MediaAudio, nil
	case strings.HasPrefix(base, "application/"), strings.HasPrefix(base, "text/"):
		return models.MediaDocument, nil
	default:
		return "", mediaErrorf(CodeUnsupportedMediaType, "unsupported media MIME type %q", mimeType)
	}
}

// Resolve processes a batch of refs in parallel. Any single resolution
// failure fails the batch. All items must classify to the same type and
// that type must equal the caller-declared one.
func (r *MediaResolver) Resolve(ctx context.Context, refs []MediaRef, declaredType string, customerID uint) ([]ResolvedMedia, error) {
	if len(refs) == 0 {
		return nil, mediaErrorf(CodeInvalidMediaReference, "no media reference supplied")
	}

	resolved := make([]ResolvedMedia, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	for i, ref := range refs {
		i, ref := i, ref
		g.Go(func() error {
			item, err := r.resolveOne(gctx, ref, customerID)
			if err != nil {
				return err
			}
			resolved[i] = *item
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	unanimous := resolved[0].Type
	for _, item := range resolved[1:] {
		if item.Type != unanimous {
			return nil, mediaErrorf(CodeMixedMediaFormats,
				"media batch mixes %s and %s items", unanimous, item.Type)
		}
	}
	if unanimous != declaredType {
		return nil, mediaErrorf(CodeMediaFormatMismatch,
			"declared type %q but media classified as %q", declaredType, unanimous)
	}

	return resolved, nil
}

func (r *MediaResolver) resolveOne(ctx context.Context, ref MediaRef, customerID uint) (*ResolvedMedia, error) {
	var (
		downloadURL   string
		mimeType      string
		authenticated bool
	)

	if ref.ID != "" {
		meta, err := r.provider.GetMediaMetadata(ctx, ref.ID)
		if err != nil {
			return nil, mediaErrorf(CodeInvalidMediaReference, "media %s: metadata fetch failed: %v", ref.ID, err)
		}
		downloadURL = meta.URL
		mimeType = meta.MimeType
		authenticated = true
	} else if ref.Link != "" {
		downloadURL = ref.Link
	} else {
		return nil, mediaErrorf(CodeInvalidMediaReference, "media reference has neither id nor link")
	}

	data, contentType, err := r.provider.DownloadMedia(ctx, downloadURL, authenticated)
	if err != nil {
		return nil, mediaErrorf(CodeInvalidMediaReference, "media download failed: %v", err)
	}
	if mimeType == "" {
		mimeType = contentType
	}

	mediaType, err := classifyMime(mimeType)
	if err != nil {
		return nil, err
	}

	item := &ResolvedMedia{Ref: ref, Type: mediaType, MimeType: mimeType}

	// Re-host for inbox replay. A storage failure only loses the local
	// replay link; the provider-side send still proceeds.
	if r.store != nil {
		path := fmt.Sprintf("%s/%d/%s%s", r.prefix, customerID, uuid.NewString(), extensionFor(mimeType))
		storedURL, err := r.store.Upload(ctx, path, data, mimeType)
		if err != nil {
			zap.L().Warn("dispatch: media re-host failed, replay link will be missing",
				zap.String("path", path), zap.Error(err))
		} else {
			item.StoredURL = storedURL
		}
	}

	return item, nil
}

func extensionFor(mimeType string) string {
	base := strings.SplitN(mimeType, ";", 2)[0]
	exts, err := mime.ExtensionsByType(base)
	if err != nil || len(exts) == 0 {
		return ""
	}
	return exts[0]
}
