// Package ingest runs the document pipeline: extract pages, infer document
// metadata, chunk, and hand the chunks to the similarity indexer.
package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/papergraph/papergraph/internal/chunker"
	"github.com/papergraph/papergraph/internal/extract"
	"github.com/papergraph/papergraph/internal/fileid"
	"github.com/papergraph/papergraph/internal/graph"
	"github.com/papergraph/papergraph/internal/metadata"
	"github.com/papergraph/papergraph/internal/models"
)

// Pipeline wires extraction, metadata inference, chunking, and indexing.
type Pipeline struct {
	extractor *extract.Extractor
	chunker   *chunker.Chunker
	indexer   *graph.Indexer
	logger    *zap.Logger
}

// NewPipeline builds a pipeline around the given chunker and indexer.
func NewPipeline(ch *chunker.Chunker, ix *graph.Indexer, logger *zap.Logger) (*Pipeline, error) {
	if ch == nil {
		return nil, fmt.Errorf("pipeline requires a chunker")
	}
	if ix == nil {
		return nil, fmt.Errorf("pipeline requires an indexer")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		extractor: extract.NewExtractor(),
		chunker:   ch,
		indexer:   ix,
		logger:    logger,
	}, nil
}

// IngestFile extracts, chunks, and indexes one document. It returns the
// chunks it indexed. Extraction failures abort the document; metadata
// inference cannot fail, missing fields just stay empty.
func (p *Pipeline) IngestFile(ctx context.Context, path string) ([]*models.Chunk, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path %s: %w", path, err)
	}
	docID := fileid.FileDocID(abs)

	pages, info, err := p.extractor.Extract(abs, docID)
	if err != nil {
		return nil, err
	}

	source := filepath.Base(abs)
	first := pages
	if len(first) > metadata.FirstPagesForMetadata {
		first = first[:metadata.FirstPagesForMetadata]
	}
	meta := metadata.Extract(source, first, info)

	chunks := p.chunker.Split(pages, meta)
	if len(chunks) == 0 {
		p.logger.Warn("document produced no chunks", zap.String("source", source))
		return nil, nil
	}

	if err := p.indexer.Index(ctx, chunks); err != nil {
		return nil, fmt.Errorf("index %s: %w", source, err)
	}

	p.logger.Info("ingested document",
		zap.String("source", source),
		zap.Int("pages", len(pages)),
		zap.Int("chunks", len(chunks)))
	return chunks, nil
}

// IngestDir walks dir and ingests every file whose extension is in
// extensions (all files when extensions is empty). Per-file failures are
// logged and skipped; the walk itself failing is an error. Returns the
// number of documents ingested.
func (p *Pipeline) IngestDir(ctx context.Context, dir string, extensions []string) (int, error) {
	allowed := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		allowed[strings.ToLower(ext)] = true
	}

	var ingested int
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if len(allowed) > 0 && !allowed[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		if _, err := p.IngestFile(ctx, path); err != nil {
			p.logger.Warn("skipping document", zap.String("path", path), zap.Error(err))
			return nil
		}
		ingested++
		return ctx.Err()
	})
	if err != nil {
		return ingested, fmt.Errorf("walk %s: %w", dir, err)
	}
	return ingested, nil
}

// LoadCorpus extracts and chunks every matching file under dir without
// indexing, for retrievers that hold the corpus in memory.
func (p *Pipeline) LoadCorpus(ctx context.Context, dir string, extensions []string) ([]*models.Chunk, error) {
	return LoadCorpus(ctx, p.chunker, dir, extensions, p.logger)
}

// LoadCorpus extracts and chunks every matching file under dir. It needs no
// graph store, so it also serves the brute-force fallback path when the
// store is unreachable.
func LoadCorpus(ctx context.Context, ch *chunker.Chunker, dir string, extensions []string, logger *zap.Logger) ([]*models.Chunk, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	extractor := extract.NewExtractor()
	allowed := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		allowed[strings.ToLower(ext)] = true
	}

	var corpus []*models.Chunk
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if len(allowed) > 0 && !allowed[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil
		}
		pages, info, err := extractor.Extract(abs, fileid.FileDocID(abs))
		if err != nil {
			logger.Warn("skipping document", zap.String("path", path), zap.Error(err))
			return nil
		}
		first := pages
		if len(first) > metadata.FirstPagesForMetadata {
			first = first[:metadata.FirstPagesForMetadata]
		}
		meta := metadata.Extract(filepath.Base(abs), first, info)
		corpus = append(corpus, ch.Split(pages, meta)...)
		return ctx.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	return corpus, nil
}
