package interaction

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/protwis/signprot/internal/config"
	domain "github.com/protwis/signprot/internal/domain/interaction"
	"github.com/protwis/signprot/internal/domain/structure"
	"github.com/protwis/signprot/internal/infrastructure/database/redis"
	kafkainfra "github.com/protwis/signprot/internal/infrastructure/messaging/kafka"
	"github.com/protwis/signprot/internal/infrastructure/monitoring/logging"
	"github.com/protwis/signprot/internal/infrastructure/monitoring/prometheus"
	"github.com/protwis/signprot/pkg/errors"
)

// PDBFiles is the local store of coordinate files.
type PDBFiles interface {
	Get(ctx context.Context, pdbCode string) ([]byte, bool, error)
	Put(ctx context.Context, pdbCode string, data []byte) error
}

// PDBFetcher downloads coordinate files. ok=false with a nil error means the
// attempts ran out.
type PDBFetcher interface {
	FetchPDB(ctx context.Context, pdbCode string) ([]byte, bool, error)
}

// EventPublisher announces finished structures.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic, key, eventType string, payload interface{}) error
}

// Outcome is the result of one structure.
type Outcome struct {
	StructureID int64
	PDBCode     string
	Contacts    int
	Pairs       int64
	Skipped     bool
	Err         error
}

// Summary aggregates the outcomes of a run, ordered by structure id.
type Summary struct {
	Processed int
	Failed    int
	Skipped   int
	Pairs     int64
	Outcomes  []Outcome
}

// Builder computes receptor–transducer pairs of complex structures with a
// fixed pool of workers.
type Builder struct {
	repo        domain.BuildRepository
	writer      domain.Writer
	files       PDBFiles
	fetcher     PDBFetcher
	locker      redis.StructureLocker
	events      EventPublisher
	resultTopic string
	cache       Cache
	workers     int
	cutoff      float64
	logger      logging.Logger
	metrics     *prometheus.AppMetrics
}

type BuilderOption func(*Builder)

// WithLocker skips structures another builder is working on.
func WithLocker(l redis.StructureLocker) BuilderOption {
	return func(b *Builder) { b.locker = l }
}

// WithEvents publishes an interactions.computed event per structure on topic.
func WithEvents(p EventPublisher, topic string) BuilderOption {
	return func(b *Builder) {
		b.events = p
		if topic != "" {
			b.resultTopic = topic
		}
	}
}

// WithMatrixCache invalidates cached matrices after a run that wrote pairs.
func WithMatrixCache(c Cache) BuilderOption {
	return func(b *Builder) { b.cache = c }
}

func WithBuilderMetrics(m *prometheus.AppMetrics) BuilderOption {
	return func(b *Builder) {
		if m != nil {
			b.metrics = m
		}
	}
}

// NewBuilder wires a builder. files may be nil, in which case every file is
// fetched.
func NewBuilder(repo domain.BuildRepository, writer domain.Writer, files PDBFiles, fetcher PDBFetcher, cfg config.WorkerConfig, logger logging.Logger, opts ...BuilderOption) *Builder {
	b := &Builder{
		repo:        repo,
		writer:      writer,
		files:       files,
		fetcher:     fetcher,
		resultTopic: kafkainfra.TopicInteractionsComputed,
		workers:     cfg.Processes,
		cutoff:      cfg.ContactCutoff,
		logger:      logger.Named("builder"),
		metrics:     prometheus.NewNopAppMetrics(),
	}
	if b.workers <= 0 {
		b.workers = config.DefaultWorkerProcesses
	}
	if b.cutoff <= 0 {
		b.cutoff = config.DefaultWorkerContactCutoff
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Workers returns the size of the pool.
func (b *Builder) Workers() int { return b.workers }

// Run builds every complex, or only those with the given PDB codes.
func (b *Builder) Run(ctx context.Context, pdbCodes []string) (*Summary, error) {
	structures, err := b.repo.ListComplexStructures(ctx, pdbCodes)
	if err != nil {
		return nil, err
	}
	b.logger.Info("Building complex interactions",
		logging.Int("structures", len(structures)),
		logging.Int("workers", b.workers))
	return b.BuildAll(ctx, structures), nil
}

// BuildAll hands every structure to exactly one worker. A failing structure
// is recorded in the summary and never retried. Cancelling ctx stops feeding
// new structures; the ones already taken run to completion.
func (b *Builder) BuildAll(ctx context.Context, structures []domain.ComplexStructure) *Summary {
	jobs := make(chan domain.ComplexStructure)
	results := make(chan Outcome, b.workers)

	var g errgroup.Group
	g.Go(func() error {
		defer close(jobs)
		for _, cs := range structures {
			select {
			case <-ctx.Done():
				return nil
			case jobs <- cs:
			}
		}
		return nil
	})
	for i := 0; i < b.workers; i++ {
		g.Go(func() error {
			for cs := range jobs {
				results <- b.buildOne(context.WithoutCancel(ctx), cs)
			}
			return nil
		})
	}
	go func() {
		_ = g.Wait()
		close(results)
	}()

	summary := &Summary{Outcomes: make([]Outcome, 0, len(structures))}
	for o := range results {
		switch {
		case o.Skipped:
			summary.Skipped++
		case o.Err != nil:
			summary.Failed++
		default:
			summary.Processed++
			summary.Pairs += o.Pairs
		}
		summary.Outcomes = append(summary.Outcomes, o)
	}
	sort.Slice(summary.Outcomes, func(i, j int) bool {
		return summary.Outcomes[i].StructureID < summary.Outcomes[j].StructureID
	})

	if summary.Processed > 0 && b.cache != nil {
		if _, err := b.cache.DeleteByPrefix(context.WithoutCancel(ctx), MatrixCachePrefix); err != nil {
			b.logger.Warn("Failed to invalidate matrix cache", logging.Err(err))
		}
	}
	b.logger.Info("Complex interactions built",
		logging.Int("processed", summary.Processed),
		logging.Int("failed", summary.Failed),
		logging.Int("skipped", summary.Skipped),
		logging.Int64("pairs", summary.Pairs))
	return summary
}

func (b *Builder) buildOne(ctx context.Context, cs domain.ComplexStructure) (out Outcome) {
	start := time.Now()
	out = Outcome{StructureID: cs.StructureID, PDBCode: cs.PDBCode}
	log := b.logger.With(logging.Int64("structure_id", cs.StructureID), logging.String("pdb", cs.PDBCode))
	defer func() {
		if r := recover(); r != nil {
			out.Err = errors.New(errors.ErrCodeInternal, "structure build panicked").WithDetail(fmt.Sprint(r))
			log.Error("Structure build panicked", logging.Err(out.Err))
			b.metrics.RecordStructure(out.Contacts, time.Since(start), out.Err)
			b.publish(ctx, out, log)
		}
	}()

	if b.locker != nil {
		lock := b.locker.ForStructure(cs.StructureID)
		ok, err := lock.TryLock(ctx)
		if err != nil {
			out.Err = err
			log.Error("Structure lock failed", logging.Err(err))
			b.metrics.RecordStructure(0, time.Since(start), err)
			return out
		}
		if !ok {
			out.Skipped = true
			log.Info("Structure is being built elsewhere, skipping")
			return out
		}
		defer func() {
			if err := lock.Unlock(ctx); err != nil {
				log.Warn("Structure unlock failed", logging.Err(err))
			}
		}()
	}

	out.Contacts, out.Pairs, out.Err = b.compute(ctx, cs, log)
	b.metrics.RecordStructure(out.Contacts, time.Since(start), out.Err)
	if out.Err != nil {
		log.Error("Structure failed", logging.Err(out.Err))
	} else {
		log.Debug("Structure built", logging.Int("contacts", out.Contacts), logging.Int64("pairs", out.Pairs))
	}
	b.publish(ctx, out, log)
	return out
}

func (b *Builder) compute(ctx context.Context, cs domain.ComplexStructure, log logging.Logger) (int, int64, error) {
	raw, err := b.load(ctx, cs.PDBCode, log)
	if err != nil {
		return 0, 0, err
	}
	s, err := structure.ParsePDB(cs.PDBCode, raw)
	if err != nil {
		return 0, 0, err
	}
	contacts, err := structure.Contacts(s, cs.ReceptorChain, cs.SignalChain, b.cutoff)
	if err != nil {
		return 0, 0, err
	}

	receptor, err := b.residueIndex(ctx, cs.ReceptorConformationID)
	if err != nil {
		return len(contacts), 0, err
	}
	signal, err := b.residueIndex(ctx, cs.SignalConformationID)
	if err != nil {
		return len(contacts), 0, err
	}

	pairs := make([]domain.ComputedPair, 0, len(contacts))
	unmapped := 0
	for _, c := range contacts {
		r1, ok1 := receptor[c.Receptor.Number]
		r2, ok2 := signal[c.Signal.Number]
		if !ok1 || !ok2 {
			unmapped++
			continue
		}
		pairs = append(pairs, domain.ComputedPair{
			StructureID: cs.StructureID,
			Res1ID:      r1.ID,
			Res2ID:      r2.ID,
			Types:       c.Types,
			Distance:    c.Distance,
		})
	}
	if unmapped > 0 {
		log.Debug("Contacts without catalog residues dropped", logging.Int("unmapped", unmapped))
	}

	n, err := b.writer.ReplaceStructurePairs(ctx, cs.StructureID, pairs)
	return len(contacts), n, err
}

// load reads the file from the local store, falling back to the fetcher and
// storing what it downloads.
func (b *Builder) load(ctx context.Context, pdbCode string, log logging.Logger) ([]byte, error) {
	if b.files != nil {
		raw, ok, err := b.files.Get(ctx, pdbCode)
		if err != nil {
			log.Warn("Local PDB store read failed, fetching", logging.Err(err))
		} else if ok {
			return raw, nil
		}
	}

	raw, ok, err := b.fetcher.FetchPDB(ctx, pdbCode)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New(errors.ErrCodeFetchExhausted, "pdb file could not be fetched").WithDetail(pdbCode)
	}
	if b.files != nil {
		if err := b.files.Put(ctx, pdbCode, raw); err != nil {
			log.Warn("Failed to store fetched PDB file", logging.Err(err))
		}
	}
	return raw, nil
}

func (b *Builder) residueIndex(ctx context.Context, conformationID int64) (map[int]domain.CatalogResidue, error) {
	if conformationID == 0 {
		return nil, errors.New(errors.ErrCodeComplexIncomplete, "complex has no conformation").
			WithDetail(fmt.Sprintf("conformation=%d", conformationID))
	}
	residues, err := b.repo.ConformationResidues(ctx, conformationID)
	if err != nil {
		return nil, err
	}
	idx := make(map[int]domain.CatalogResidue, len(residues))
	for _, r := range residues {
		if _, ok := idx[r.SequenceNumber]; !ok {
			idx[r.SequenceNumber] = r
		}
	}
	return idx, nil
}

func (b *Builder) publish(ctx context.Context, o Outcome, log logging.Logger) {
	if b.events == nil {
		return
	}
	payload := kafkainfra.InteractionsComputed{
		StructureID: o.StructureID,
		PDBCode:     o.PDBCode,
		Pairs:       o.Pairs,
		Status:      kafkainfra.StatusOK,
		ComputedAt:  time.Now().UTC(),
	}
	if o.Err != nil {
		payload.Status = kafkainfra.StatusFailed
		payload.Error = o.Err.Error()
	}
	if err := b.events.PublishEvent(ctx, b.resultTopic, o.PDBCode, kafkainfra.EventInteractionsComputed, payload); err != nil {
		log.Warn("Failed to publish interactions event", logging.Err(err))
	}
}
