package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/anime-shed/image-search-go/internal/analyzer"
	"github.com/anime-shed/image-search-go/internal/catalogue"
	apperrors "github.com/anime-shed/image-search-go/internal/errors"
	"github.com/anime-shed/image-search-go/internal/ingest"
	"github.com/anime-shed/image-search-go/internal/worker"
	"github.com/anime-shed/image-search-go/pkg/models"
	"github.com/anime-shed/image-search-go/pkg/validation"
)

// CatalogueService is the application API shared by the CLI and the HTTP
// transport.
type CatalogueService interface {
	Taggers() []models.TaggerInfo
	AddImage(ctx context.Context, req models.AddImageRequest) (*models.AddImageResponse, error)
	Query(ctx context.Context, expressions []string) (*models.ImagesResponse, error)
	GetImage(ctx context.Context, id string) (*models.ImageResponse, error)
	GetTag(ctx context.Context, id, tag string) (*models.TagResponse, error)
	Closest(ctx context.Context, id, tag string, n int) (*models.DistancesResponse, error)

	// RunPass returns the pass summary even when units failed; err is then
	// the first unit failure.
	RunPass(ctx context.Context, req models.PassRequest) (*models.PassResponse, error)
}

type catalogueService struct {
	catalogue *catalogue.Catalogue
	workers   *worker.WorkerPool
	index     *ingest.Index
	validator *validation.LocationValidator
}

// NewCatalogueService creates the service. index may be nil, in which case
// copy requests are rejected.
func NewCatalogueService(
	cat *catalogue.Catalogue,
	workers *worker.WorkerPool,
	index *ingest.Index,
	validator *validation.LocationValidator,
) CatalogueService {
	return &catalogueService{
		catalogue: cat,
		workers:   workers,
		index:     index,
		validator: validator,
	}
}

func (s *catalogueService) Taggers() []models.TaggerInfo {
	entries := s.catalogue.Taggers().Entries()
	out := make([]models.TaggerInfo, len(entries))
	for i, e := range entries {
		caps := analyzer.CapabilitiesOf(e.Tagger)
		out[i] = models.TaggerInfo{
			Name:         e.Name,
			Kind:         e.Tagger.Kind().String(),
			Column:       catalogue.ColumnName(e.Name),
			ParseLiteral: caps.ParseLiteral,
			Distance:     caps.Distance,
		}
	}
	return out
}

func (s *catalogueService) AddImage(ctx context.Context, req models.AddImageRequest) (*models.AddImageResponse, error) {
	if err := s.validator.ValidateLocation(req.Path); err != nil {
		return nil, err
	}

	resp := &models.AddImageResponse{}
	location := req.Path
	if req.Copy {
		if s.index == nil {
			return nil, apperrors.NewConfigurationError("no index directory configured", nil)
		}
		if validation.IsRemote(req.Path) {
			return nil, apperrors.NewValidationError("only local files can be copied into the index", nil)
		}
		res, err := s.index.Add(req.Path)
		if err != nil {
			return nil, err
		}
		location = res.Path
		resp.Hash = res.Hash
	}

	pass, id, err := s.catalogue.AddImage(ctx, location)
	if err != nil {
		return nil, err
	}

	if !req.SkipTagging {
		report, err := pass.Run(ctx, s.workers)
		if err != nil && !apperrors.IsType(err, apperrors.ErrorTypeAnalysisFailure) {
			return nil, err
		}
		resp.Pass = toPassResponse(pass, report, err)
	}

	img, err := s.catalogue.Image(ctx, id)
	if err != nil {
		return nil, err
	}
	resp.Image = toImageResponse(*img)
	return resp, nil
}

func (s *catalogueService) Query(ctx context.Context, expressions []string) (*models.ImagesResponse, error) {
	sel, err := catalogue.ParseExpressions(expressions, s.catalogue.Taggers())
	if err != nil {
		return nil, err
	}
	images, err := s.catalogue.Images(ctx, sel)
	if err != nil {
		return nil, err
	}
	out := &models.ImagesResponse{Count: len(images), Images: make([]models.ImageResponse, len(images))}
	for i, img := range images {
		out.Images[i] = toImageResponse(img)
	}
	return out, nil
}

func (s *catalogueService) GetImage(ctx context.Context, id string) (*models.ImageResponse, error) {
	imageID, err := parseImageID(id)
	if err != nil {
		return nil, err
	}
	img, err := s.catalogue.Image(ctx, imageID)
	if err != nil {
		return nil, err
	}
	resp := toImageResponse(*img)
	return &resp, nil
}

func (s *catalogueService) GetTag(ctx context.Context, id, tag string) (*models.TagResponse, error) {
	imageID, err := parseImageID(id)
	if err != nil {
		return nil, err
	}
	v, err := s.catalogue.Tag(ctx, imageID, tag)
	if err != nil {
		return nil, err
	}
	return &models.TagResponse{ImageID: imageID.String(), Tag: tag, Present: v != nil, Value: v}, nil
}

func (s *catalogueService) Closest(ctx context.Context, id, tag string, n int) (*models.DistancesResponse, error) {
	imageID, err := parseImageID(id)
	if err != nil {
		return nil, err
	}
	ranked, err := s.catalogue.Closest(ctx, imageID, tag, n)
	if err != nil {
		return nil, err
	}
	out := &models.DistancesResponse{ImageID: imageID.String(), Tag: tag, Results: make([]models.DistanceEntry, len(ranked))}
	for i, r := range ranked {
		out.Results[i] = models.DistanceEntry{ID: r.Image.ID.String(), Path: r.Image.Path, Distance: r.Distance}
	}
	return out, nil
}

func (s *catalogueService) RunPass(ctx context.Context, req models.PassRequest) (*models.PassResponse, error) {
	sel, err := catalogue.ParseExpressions(req.Select, s.catalogue.Taggers())
	if err != nil {
		return nil, err
	}

	pass := s.catalogue.PassWithAllTaggers(sel)
	if len(req.Taggers) > 0 {
		pass, err = s.catalogue.PassFor(sel, req.Taggers...)
		if errors.Is(err, analyzer.ErrUnknownTagger) {
			return nil, apperrors.NewValidationError("unknown tagger in pass request", err)
		}
		if err != nil {
			return nil, err
		}
	}

	report, err := pass.Run(ctx, s.workers)
	if err != nil && !apperrors.IsType(err, apperrors.ErrorTypeAnalysisFailure) {
		return nil, err
	}
	return toPassResponse(pass, report, err), err
}

func parseImageID(id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, apperrors.NewValidationError(fmt.Sprintf("invalid image id %q", id), err)
	}
	return parsed, nil
}

func toImageResponse(img catalogue.Image) models.ImageResponse {
	tags := make(map[string]interface{}, len(img.Tags))
	for k, v := range img.Tags {
		tags[k] = v
	}
	return models.ImageResponse{ID: img.ID.String(), Path: img.Path, Tags: tags}
}

func toPassResponse(pass *catalogue.Pass, report *catalogue.Report, err error) *models.PassResponse {
	resp := &models.PassResponse{
		PassID:     report.PassID,
		Taggers:    pass.Taggers(),
		Rows:       report.Rows,
		Units:      report.Units,
		Writes:     report.Writes,
		Failures:   report.Failures,
		DurationMs: report.Duration.Milliseconds(),
	}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}
