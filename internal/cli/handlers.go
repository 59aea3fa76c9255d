package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/BartekS5/archimport/internal/config"
	"github.com/BartekS5/archimport/internal/etl"
	"github.com/BartekS5/archimport/internal/parser"
	"github.com/BartekS5/archimport/internal/sector"
	"github.com/BartekS5/archimport/internal/storage"
	"github.com/BartekS5/archimport/internal/store"
	"github.com/BartekS5/archimport/pkg/database"
	"github.com/BartekS5/archimport/pkg/logger"
	"github.com/BartekS5/archimport/pkg/models"
	"go.mongodb.org/mongo-driver/mongo"
)

// Output targets of an import.
const (
	OutputImport  = "import"
	OutputCSV     = "csv"
	OutputPreview = "preview"
)

// ImportRequest is one import as requested on the command line or by a queued job.
type ImportRequest struct {
	File    string
	Mapping string
	// Sector selects a sector preset; Mapping is then an optional override.
	Sector     string
	Output     string
	OutputFile string
	Repository string
	Parent     int64
	Culture    string

	Update     bool
	MatchField string
	UpdateMode string

	DryRun       bool
	ValidateOnly bool
	Limit        int
	Skip         int

	Sheet      int
	SkipHeader bool
	Delimiter  string
}

type entityStore interface {
	etl.EntityStore
	etl.KeymapStore
	Close() error
}

type mappingStore interface {
	List(ctx context.Context) ([]models.MappingProfile, error)
	Find(ctx context.Context, ref string) (*models.MappingProfile, error)
	Save(ctx context.Context, profiles ...models.MappingProfile) error
}

// app holds the infrastructure shared by the commands of one process.
type app struct {
	cfg      *config.Config
	// stdout receives CSV written to "-".
	stdout   io.Writer
	mongo    *mongo.Client
	mappings mappingStore
	entities entityStore
}

// newApp loads the config and installs the logger on logOut. stdout is where
// data output goes, so callers pass a different logOut when both would collide.
func newApp(stdout, logOut io.Writer) (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	err = logger.InitLogger(logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
		Writer: logOut,
	})
	if err != nil {
		return nil, err
	}
	logger.Debugf("Loaded %s", cfg)
	return &app{cfg: cfg, stdout: stdout}, nil
}

func (a *app) mongoClient() (*mongo.Client, error) {
	if a.mongo != nil {
		return a.mongo, nil
	}
	client, err := database.ConnectMongo(a.cfg.Database.MongoURL)
	if err != nil {
		return nil, err
	}
	a.mongo = client
	return client, nil
}

func (a *app) mappingStore() (mappingStore, error) {
	if a.mappings != nil {
		return a.mappings, nil
	}
	switch strings.ToLower(a.cfg.Mappings.Store) {
	case "mongo":
		client, err := a.mongoClient()
		if err != nil {
			return nil, err
		}
		a.mappings = store.NewMongoMappings(client, a.cfg.Database.MongoDatabase)
	default:
		a.mappings = config.NewFileMappings(a.cfg.Mappings.Path)
	}
	return a.mappings, nil
}

func (a *app) entityStore() (entityStore, error) {
	if a.entities != nil {
		return a.entities, nil
	}
	switch driver := strings.ToLower(a.cfg.Database.Driver); driver {
	case "memory":
		a.entities = store.NewMemoryStore()
	case "mongo":
		client, err := a.mongoClient()
		if err != nil {
			return nil, err
		}
		a.entities = store.NewMongoStore(client, a.cfg.Database.MongoDatabase)
	default:
		db, err := database.ConnectSQL(driver, a.cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		s, err := store.NewSQLStore(db, driver)
		if err != nil {
			db.Close()
			return nil, err
		}
		a.entities = s
	}
	logger.Infof("Using %s entity store", a.cfg.Database.Driver)
	return a.entities, nil
}

func (a *app) Close() {
	if a.entities != nil {
		if _, ok := a.entities.(*store.MongoStore); !ok {
			if err := a.entities.Close(); err != nil {
				logger.Warnf("Error closing entity store: %v", err)
			}
		}
	}
	database.DisconnectMongo(a.mongo)
	logger.Close()
}

// loadProfile resolves the --mapping reference. An empty reference is allowed
// for sector imports.
func (a *app) loadProfile(ctx context.Context, ref string) (*models.MappingProfile, error) {
	if ref == "" {
		return nil, nil
	}
	mappings, err := a.mappingStore()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Database.Timeout)
	defer cancel()
	profile, err := mappings.Find(ctx, ref)
	if errors.Is(err, models.ErrMappingNotFound) {
		return nil, etl.NewSetupError(etl.ErrMappingNotFound, fmt.Errorf("%q", ref))
	}
	return profile, err
}

func parseMatchField(field string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(field)) {
	case "", strings.ToLower(etl.MatchLegacyID):
		return etl.MatchLegacyID, nil
	case etl.MatchIdentifier:
		return etl.MatchIdentifier, nil
	default:
		return "", fmt.Errorf("invalid match field %q (want legacyId or identifier)", field)
	}
}

// invalidOption marks a bad request option as a setup failure, so a queued job
// carrying it is dropped rather than retried.
func invalidOption(err error) error {
	return etl.NewSetupError(etl.ErrInvalidOption, err)
}

// buildSink picks the sink for req.Output. Database imports also get a resolver.
func (a *app) buildSink(req ImportRequest, sectorCode string) (etl.Sink, etl.Resolver, error) {
	switch req.Output {
	case OutputCSV:
		dest := req.OutputFile
		if dest == "" {
			dest = "-"
		}
		var uploader etl.Uploader
		if storage.IsS3URL(dest) {
			u, err := storage.NewS3Uploader(storage.S3Config{
				Endpoint:  a.cfg.S3.Endpoint,
				Region:    a.cfg.S3.Region,
				AccessKey: a.cfg.S3.AccessKey,
				SecretKey: a.cfg.S3.SecretKey,
				UseSSL:    a.cfg.S3.UseSSL,
			})
			if err != nil {
				return nil, nil, err
			}
			uploader = u
		}
		sink := etl.NewCSVSink(dest, uploader)
		if a.stdout != nil {
			sink.Stdout = a.stdout
		}
		return sink, nil, nil
	case OutputPreview:
		return &etl.PreviewSink{}, nil, nil
	case "", OutputImport:
	default:
		return nil, nil, invalidOption(fmt.Errorf("invalid output %q (want import, csv or preview)", req.Output))
	}

	mode, err := etl.ParseUpdateMode(req.UpdateMode)
	if err != nil {
		return nil, nil, invalidOption(err)
	}

	var entities entityStore
	if req.DryRun || req.ValidateOnly {
		entities = store.NewMemoryStore()
	} else if entities, err = a.entityStore(); err != nil {
		return nil, nil, err
	}

	sink := &etl.DatabaseSink{
		Entities:      entities,
		Keymaps:       entities,
		Strategy:      sector.For(sectorCode),
		Table:         sector.CanonicalTable(sectorCode),
		SourceName:    filepath.Base(req.File),
		Mode:          mode,
		Repository:    req.Repository,
		DefaultParent: req.Parent,
	}
	resolver, err := etl.NewKeymapResolver(entities, entities, a.cfg.Resolver.CacheSize)
	if err != nil {
		return nil, nil, err
	}
	return sink, resolver, nil
}

// runImport executes req and writes the report to out. A run with row errors
// or failed validation returns etl.ErrRowsFailed.
func (a *app) runImport(ctx context.Context, req ImportRequest, out io.Writer) (*etl.Stats, error) {
	matchField, err := parseMatchField(req.MatchField)
	if err != nil {
		return nil, invalidOption(err)
	}
	profile, err := a.loadProfile(ctx, req.Mapping)
	if err != nil {
		return nil, err
	}

	opts := etl.RunOptions{
		DryRun:         req.DryRun,
		UpdateExisting: req.Update,
		MatchField:     matchField,
		Skip:           req.Skip,
		Limit:          req.Limit,
		Culture:        req.Culture,
		ValidateOnly:   req.ValidateOnly,
		Quiet:          req.Output == OutputCSV || req.Output == OutputPreview,
		Parse: parser.Options{
			SheetIndex:       req.Sheet,
			FirstRowIsHeader: req.SkipHeader,
			Delimiter:        req.Delimiter,
		},
	}
	if opts.UpdateMode, err = etl.ParseUpdateMode(req.UpdateMode); err != nil {
		return nil, invalidOption(err)
	}

	sectorCode := req.Sector
	var validator etl.Validator
	if sectorCode != "" {
		sp, err := sector.Lookup(sectorCode)
		if err != nil {
			return nil, invalidOption(err)
		}
		opts.BaseProfile = func(headers []string) *models.MappingProfile {
			return sector.ProfileMapping(sp, headers)
		}
		validator = etl.NewValidator(sp)
	} else if profile != nil {
		sectorCode = profile.TargetType
	}

	sink, resolver, err := a.buildSink(req, sectorCode)
	if err != nil {
		return nil, err
	}

	runner := etl.NewRunner(sink, resolver, sectorCode)
	runner.Validator = validator
	stats, err := runner.Run(ctx, req.File, profile, opts)
	if err != nil {
		return stats, err
	}

	if preview, ok := sink.(*etl.PreviewSink); ok {
		preview.Print(out)
	}
	stats.WriteSummary(out, !opts.Quiet)
	if stats.Failed() {
		return stats, etl.ErrRowsFailed
	}
	return stats, nil
}
