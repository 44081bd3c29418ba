package factory

import (
	"fmt"

	"github.com/anime-shed/image-search-go/internal/analyzer"
	"github.com/anime-shed/image-search-go/internal/config"
	"github.com/anime-shed/image-search-go/internal/ocr"
	"github.com/anime-shed/image-search-go/internal/ocr/tesseract"
	"github.com/anime-shed/image-search-go/internal/storage"
	"github.com/anime-shed/image-search-go/pkg/validation"
)

// Names of the default taggers. They become the tag$<name> columns.
const (
	FrequencyBand       = "frequencyBand"
	Tesseract           = "tesseract"
	HaralickContrast    = "haralickContrast"
	HaralickCorrelation = "haralickCorrelation"
	HaralickEnergy      = "haralickEnergy"
	HaralickEntropy     = "haralickEntropy"
	HaralickHomogeneity = "haralickHomogeneity"
	HaralickMaxProb     = "haralickMaxProb"
	Histogram           = "histogram"
)

// StorageType represents different types of image sources
type StorageType string

const (
	// HTTPStorage for HTTP-based image fetching
	HTTPStorage StorageType = "http"
	// AzureStorage for Azure blob storage
	AzureStorage StorageType = "azure"
	// LocalStorage for local file system
	LocalStorage StorageType = "local"
)

// TaggerFactory creates the default tagger set
type TaggerFactory interface {
	CreateTaggers() ([]analyzer.Entry, error)
}

// StorageFactory creates image loaders
type StorageFactory interface {
	CreateStorage(storageType StorageType) (storage.ImageLoader, error)
}

// taggerFactory implements TaggerFactory
type taggerFactory struct {
	cfg       *config.Config
	extractor ocr.Extractor
}

// NewTaggerFactory creates a tagger factory. A nil extractor uses tesseract
// with the configured language.
func NewTaggerFactory(cfg *config.Config, extractor ocr.Extractor) TaggerFactory {
	if extractor == nil {
		extractor = tesseract.New(cfg.TesseractLanguage)
	}
	return &taggerFactory{cfg: cfg, extractor: extractor}
}

// CreateTaggers returns the default taggers in registration order
func (f *taggerFactory) CreateTaggers() ([]analyzer.Entry, error) {
	opts := analyzer.DefaultTextureOptions().
		WithLevels(f.cfg.GLCMLevels).
		WithOffset(f.cfg.GLCMDX, f.cfg.GLCMDY)

	entries := []analyzer.Entry{
		{Name: FrequencyBand, Tagger: analyzer.NewFrequencyBandTagger()},
		{Name: Tesseract, Tagger: ocr.NewTextTagger(f.extractor, ocr.MetricCharacter)},
	}

	texture := []struct {
		name  string
		build func(analyzer.TextureOptions) (analyzer.Tagger, error)
	}{
		{HaralickContrast, analyzer.NewContrastTagger},
		{HaralickCorrelation, analyzer.NewCorrelationTagger},
		{HaralickEnergy, analyzer.NewEnergyTagger},
		{HaralickEntropy, analyzer.NewEntropyTagger},
		{HaralickHomogeneity, analyzer.NewHomogeneityTagger},
		{HaralickMaxProb, analyzer.NewMaxProbabilityTagger},
	}
	for _, t := range texture {
		tagger, err := t.build(opts)
		if err != nil {
			return nil, fmt.Errorf("create %s tagger: %w", t.name, err)
		}
		entries = append(entries, analyzer.Entry{Name: t.name, Tagger: tagger})
	}

	entries = append(entries, analyzer.Entry{Name: Histogram, Tagger: analyzer.NewHistogramTagger()})
	return entries, nil
}

// storageFactory implements StorageFactory
type storageFactory struct {
	cfg *config.Config
}

// NewStorageFactory creates a new storage factory
func NewStorageFactory(cfg *config.Config) StorageFactory {
	return &storageFactory{cfg: cfg}
}

// CreateStorage creates an image loader for the given source type
func (f *storageFactory) CreateStorage(storageType StorageType) (storage.ImageLoader, error) {
	switch storageType {
	case HTTPStorage:
		return storage.NewHTTPImageFetcher(f.cfg.HTTPFetchTimeout), nil
	case AzureStorage:
		if !f.cfg.AzureEnabled() {
			return nil, fmt.Errorf("azure storage requires AZURE_STORAGE_ACCOUNT and AZURE_STORAGE_KEY")
		}
		return storage.NewAzureStorage(f.cfg.AzureAccount, f.cfg.AzureKey)
	case LocalStorage:
		return storage.NewFileLoader(), nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}

// ComponentFactory combines all factories
type ComponentFactory struct {
	TaggerFactory  TaggerFactory
	StorageFactory StorageFactory
	cfg            *config.Config
}

// NewComponentFactory creates a new component factory
func NewComponentFactory(cfg *config.Config, extractor ocr.Extractor) *ComponentFactory {
	return &ComponentFactory{
		TaggerFactory:  NewTaggerFactory(cfg, extractor),
		StorageFactory: NewStorageFactory(cfg),
		cfg:            cfg,
	}
}

// Validator returns the location validator for the configured host allow list
func (f *ComponentFactory) Validator() *validation.LocationValidator {
	if len(f.cfg.AllowedHosts) == 0 {
		return validation.NewLocationValidator()
	}
	return validation.NewLocationValidatorWithOptions(
		[]string{validation.SchemeHTTP, validation.SchemeHTTPS, validation.SchemeAzure},
		f.cfg.AllowedHosts,
		true,
	)
}

// CreateLoader builds the scheme router over every configured source.
// Blob locations are rejected when Azure is not configured.
func (f *ComponentFactory) CreateLoader(validator *validation.LocationValidator) (storage.ImageLoader, error) {
	local, err := f.StorageFactory.CreateStorage(LocalStorage)
	if err != nil {
		return nil, err
	}
	web, err := f.StorageFactory.CreateStorage(HTTPStorage)
	if err != nil {
		return nil, err
	}

	var blob storage.ImageLoader
	if f.cfg.AzureEnabled() {
		if blob, err = f.StorageFactory.CreateStorage(AzureStorage); err != nil {
			return nil, err
		}
	}
	return storage.NewRouter(validator, local, web, blob), nil
}
