package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/alpakasoelde/dashboard-api/internal/application/port"
	"github.com/alpakasoelde/dashboard-api/internal/domain/entity"
	"github.com/google/uuid"
)

const (
	MaxAlpakaNameLength = 100
	MaxImageBytes       = 15 << 20

	// DefaultImageURLLifetime is how long a listed image link stays valid
	DefaultImageURLLifetime = 30 * time.Minute

	// AlpakaAddedLocation is where the add form redirects
	AlpakaAddedLocation = "/"

	msgAlpakaIDRequired  = "Alpaka id is required."
	msgAlpakaNotFound    = "Alpaka not found."
	msgAlpakaNameTooLong = "Name exceeds 100 characters."
	msgImageTooLarge     = "Image file exceeds the maximum allowed size of 15MB."
	msgImageType         = "Unsupported image file type. Only .png, .jpg or .jpeg is allowed."
	msgAlpakaChanged     = "Alpaka was modified concurrently. Please retry."
	msgImageLinkInvalid  = "Der Bildlink ist ungültig oder abgelaufen."
	msgImageNotFound     = "Image not found."
	alpakaFieldName      = "Name"
	alpakaFieldBirthDate = "Geburtsdatum"
)

var allowedImageExtensions = map[string]bool{".png": true, ".jpg": true, ".jpeg": true}

// ImageUpload is a picture submitted with an alpaka form
type ImageUpload struct {
	FileName string
	Content  []byte
}

// extension is the lower-cased file extension including the dot
func (u *ImageUpload) extension() string {
	return strings.ToLower(filepath.Ext(u.FileName))
}

// AddAlpakaCommand carries the add form fields
type AddAlpakaCommand struct {
	Name      string
	BirthDate string
	Image     *ImageUpload
}

// UpdateAlpakaCommand replaces name and birth date; a nil Image keeps the picture
type UpdateAlpakaCommand struct {
	ID        string
	Name      string
	BirthDate string
	Image     *ImageUpload
}

// AlpakaResult is an alpaka as shown in the dashboard, with a signed image link
type AlpakaResult struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	BirthDate string  `json:"geburtsdatum"`
	ImageURL  *string `json:"imageUrl"`
}

// Image is a stored picture
type Image struct {
	Name    string
	Content []byte
}

// AlpakaConfig configures image links
type AlpakaConfig struct {
	ImageURLLifetime time.Duration
}

// AlpakaService manages the herd
type AlpakaService interface {
	AddAlpaka(ctx context.Context, cmd AddAlpakaCommand) (*AlpakaResult, error)
	ListAlpakas(ctx context.Context) ([]AlpakaResult, error)
	GetAlpaka(ctx context.Context, id string) (*AlpakaResult, error)
	UpdateAlpaka(ctx context.Context, cmd UpdateAlpakaCommand) (*AlpakaResult, error)
	OpenImage(ctx context.Context, name, token string) (*Image, error)
}

type alpakaServiceImpl struct {
	alpakaRepo port.AlpakaRepository
	images     port.ImageStore
	signer     port.ImageURLSigner
	metrics    port.Metrics
	config     AlpakaConfig
	logger     Logger
}

// NewAlpakaService creates a new AlpakaService
func NewAlpakaService(
	alpakaRepo port.AlpakaRepository,
	images port.ImageStore,
	signer port.ImageURLSigner,
	metrics port.Metrics,
	config AlpakaConfig,
	logger Logger,
) AlpakaService {
	if config.ImageURLLifetime <= 0 {
		config.ImageURLLifetime = DefaultImageURLLifetime
	}
	return &alpakaServiceImpl{
		alpakaRepo: alpakaRepo,
		images:     images,
		signer:     signer,
		metrics:    metrics,
		config:     config,
		logger:     logger,
	}
}

// AddAlpaka stores a new alpaka and its optional picture
func (s *alpakaServiceImpl) AddAlpaka(ctx context.Context, cmd AddAlpakaCommand) (*AlpakaResult, error) {
	name, birthDate, err := validateAlpakaFields(cmd.Name, cmd.BirthDate)
	if err != nil {
		return nil, err
	}
	if err := validateImage(cmd.Image); err != nil {
		return nil, err
	}

	alpaka := &entity.Alpaka{Name: name, BirthDate: birthDate}
	if cmd.Image != nil {
		if alpaka.Image, err = s.saveImage(ctx, cmd.Image); err != nil {
			return nil, err
		}
	}

	if err := s.alpakaRepo.Create(ctx, alpaka); err != nil {
		s.logger.Error("Failed to add alpaka", "name", name, "error", err)
		s.discardImage(ctx, alpaka.Image)
		return nil, fmt.Errorf("failed to store alpaka: %w", err)
	}

	s.metrics.AlpakaCreated()
	s.logger.Info("Alpaka added", "id", alpaka.ID, "name", alpaka.Name)

	return s.toResult(alpaka), nil
}

// ListAlpakas returns the herd ordered by name
func (s *alpakaServiceImpl) ListAlpakas(ctx context.Context) ([]AlpakaResult, error) {
	alpakas, err := s.alpakaRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list alpakas: %w", err)
	}

	results := make([]AlpakaResult, 0, len(alpakas))
	for _, alpaka := range alpakas {
		results = append(results, *s.toResult(alpaka))
	}
	return results, nil
}

// GetAlpaka returns one alpaka
func (s *alpakaServiceImpl) GetAlpaka(ctx context.Context, id string) (*AlpakaResult, error) {
	if strings.TrimSpace(id) == "" {
		return nil, invalid(msgAlpakaIDRequired, "id")
	}

	alpaka, err := s.alpakaRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load alpaka: %w", err)
	}
	if alpaka == nil {
		return nil, &ValidationError{Kind: KindNotFound, Detail: msgAlpakaNotFound}
	}

	return s.toResult(alpaka), nil
}

// UpdateAlpaka replaces name and birth date, and the picture when one is given.
// The previous picture is removed only after the update is stored.
func (s *alpakaServiceImpl) UpdateAlpaka(ctx context.Context, cmd UpdateAlpakaCommand) (*AlpakaResult, error) {
	if strings.TrimSpace(cmd.ID) == "" {
		return nil, invalid(msgAlpakaIDRequired, "id")
	}
	name, birthDate, err := validateAlpakaFields(cmd.Name, cmd.BirthDate)
	if err != nil {
		return nil, err
	}

	alpaka, err := s.alpakaRepo.GetByID(ctx, cmd.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load alpaka: %w", err)
	}
	if alpaka == nil {
		return nil, &ValidationError{Kind: KindNotFound, Detail: msgAlpakaNotFound}
	}

	if err := validateImage(cmd.Image); err != nil {
		return nil, err
	}

	previousImage := alpaka.Image
	alpaka.Name = name
	alpaka.BirthDate = birthDate
	if cmd.Image != nil {
		if alpaka.Image, err = s.saveImage(ctx, cmd.Image); err != nil {
			return nil, err
		}
	}

	if err := s.alpakaRepo.Update(ctx, alpaka); err != nil {
		if cmd.Image != nil {
			s.discardImage(ctx, alpaka.Image)
		}
		if errors.Is(err, port.ErrPreconditionFailed) {
			s.logger.Info("Alpaka changed during update", "id", alpaka.ID)
			return nil, &ValidationError{Kind: KindConflict, Detail: msgAlpakaChanged}
		}
		s.logger.Error("Failed to update alpaka", "id", alpaka.ID, "error", err)
		return nil, fmt.Errorf("failed to update alpaka: %w", err)
	}

	if cmd.Image != nil && previousImage != "" {
		s.discardImage(ctx, previousImage)
	}

	s.logger.Info("Alpaka updated", "id", alpaka.ID, "image_replaced", cmd.Image != nil)
	return s.toResult(alpaka), nil
}

// OpenImage returns the named picture if token grants access to it
func (s *alpakaServiceImpl) OpenImage(ctx context.Context, name, token string) (*Image, error) {
	granted, err := s.signer.Verify(token)
	if err != nil || granted != name {
		return nil, &ValidationError{Kind: KindForbidden, Detail: msgImageLinkInvalid}
	}

	content, err := s.images.Read(ctx, name)
	if errors.Is(err, port.ErrNotFound) {
		return nil, &ValidationError{Kind: KindNotFound, Detail: msgImageNotFound}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	return &Image{Name: name, Content: content}, nil
}

func (s *alpakaServiceImpl) saveImage(ctx context.Context, upload *ImageUpload) (string, error) {
	name := uuid.NewString() + upload.extension()
	if err := s.images.Save(ctx, name, upload.Content); err != nil {
		s.logger.Error("Failed to store alpaka image", "name", name, "error", err)
		return "", fmt.Errorf("failed to store image: %w", err)
	}
	return name, nil
}

// discardImage deletes a picture that is no longer referenced; failures are only logged
func (s *alpakaServiceImpl) discardImage(ctx context.Context, name string) {
	if name == "" {
		return
	}
	if err := s.images.Delete(ctx, name); err != nil {
		s.logger.Error("Failed to delete alpaka image", "name", name, "error", err)
	}
}

func (s *alpakaServiceImpl) toResult(alpaka *entity.Alpaka) *AlpakaResult {
	result := &AlpakaResult{ID: alpaka.ID, Name: alpaka.Name, BirthDate: alpaka.BirthDate}
	if !alpaka.HasImage() {
		return result
	}

	link, err := s.signer.SignURL(alpaka.Image, s.config.ImageURLLifetime)
	if err != nil {
		s.logger.Error("Failed to sign image url", "id", alpaka.ID, "error", err)
		return result
	}
	result.ImageURL = &link
	return result
}

// validateAlpakaFields trims both fields. Missing fields are reported
// together, separated by a space.
func validateAlpakaFields(name, birthDate string) (string, string, error) {
	name = strings.TrimSpace(name)
	birthDate = strings.TrimSpace(birthDate)

	var missing []string
	if name == "" {
		missing = append(missing, alpakaFieldName)
	}
	if birthDate == "" {
		missing = append(missing, alpakaFieldBirthDate)
	}
	if len(missing) > 0 {
		return "", "", invalid(strings.Join(missing, " "), missing...)
	}

	if utf8.RuneCountInString(name) > MaxAlpakaNameLength {
		return "", "", invalid(msgAlpakaNameTooLong, alpakaFieldName)
	}
	return name, birthDate, nil
}

func validateImage(upload *ImageUpload) error {
	if upload == nil {
		return nil
	}
	if len(upload.Content) > MaxImageBytes {
		return invalid(msgImageTooLarge, "image")
	}
	if !allowedImageExtensions[upload.extension()] {
		return invalid(msgImageType, "image")
	}
	return nil
}
