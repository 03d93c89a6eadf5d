package sources

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/gzip"
	"github.com/pairline/pairline/pipeline"
	"github.com/pairline/pairline/stores"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/radovskyb/watcher"
	"go.uber.org/zap"
)

// fingerprintLen bounds how much of the file head goes into the change
// digest.
const fingerprintLen = 64 * 1024

type FileConfig struct {
	Path string `yaml:"path"`
	// PollInterval is the watcher's polling cadence.
	PollInterval time.Duration `yaml:"poll-interval"`
}

type file struct {
	pipeline.Consumer
	pipeline.Publisher
	Config  FileConfig
	Watcher *watcher.Watcher
	log     *zap.SugaredLogger
}

var receivedFileDocuments = prometheus.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "pairline_sources_file",
	Name:      "documents_total",
	Help:      "Total number of feed documents read.",
}, []string{"path"})

var skippedFileDocuments = prometheus.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "pairline_sources_file",
	Name:      "documents_skipped_total",
	Help:      "Total number of reads skipped because the feed was unchanged.",
}, []string{"path"})

var lastReceivedFileDocument = prometheus.NewGaugeVec(prometheus.GaugeOpts{
	Subsystem: "pairline_sources_file",
	Name:      "last_received_document",
	Help:      "Last received feed document for this source.",
}, []string{"path"})

func init() {
	prometheus.MustRegister(receivedFileDocuments, skippedFileDocuments, lastReceivedFileDocument)
	pipeline.RegisterComponent("sources.file", func() interface{} {
		return &FileConfig{PollInterval: time.Second}
	}, func(config interface{}) pipeline.Component {
		return NewFile(*config.(*FileConfig))
	})
}

func NewFile(cfg FileConfig) *file {
	return &file{
		Config: cfg,
		log:    zap.L().Sugar().With("service", "sources.file"),
	}
}

func (fs *file) Link(parent chan interface{}) {
	panic("A source component must not be linked to a parent pipeline component")
}

func (fs *file) Close() {
	fs.Watcher.Close()
	fs.Publisher.Close()
}

func (fs *file) Run(wg *sync.WaitGroup, ctx context.Context) {
	fs.log.Info("Starting pipeline.sources.file")
	defer wg.Done()
	defer fs.log.Info("Shutting down pipeline.sources.file")

	fs.Watcher = watcher.New()
	fs.Watcher.FilterOps(watcher.Write, watcher.Rename, watcher.Create)

	go func() {
		fs.readFeed()
		for {
			select {
			case <-ctx.Done():
				fs.Watcher.Close()
				return
			case event := <-fs.Watcher.Event:
				if event.Path == fs.Config.Path {
					fs.readFeed()
				}
			case err := <-fs.Watcher.Error:
				fs.log.Error(err)
			case <-fs.Watcher.Closed:
				return
			}
		}
	}()

	if err := fs.Watcher.Add(filepath.Dir(fs.Config.Path)); err != nil {
		fs.log.Error(err)
	}

	if err := fs.Watcher.Start(fs.Config.PollInterval); err != nil {
		fs.log.Error(err)
	}
}

// readFeed publishes the feed file as one document, unless its
// fingerprint says it was already processed by this or a prior run.
func (fs *file) readFeed() {
	f, err := os.Open(fs.Config.Path)
	if err != nil {
		fs.log.Errorw("could not open feed", "path", fs.Config.Path, "error", err)
		return
	}
	defer f.Close()

	pos, err := fingerprint(f)
	if err != nil {
		fs.log.Errorw("could not fingerprint feed", "path", fs.Config.Path, "error", err)
		return
	}

	kv := stores.GetKvStore()
	if stored, ok := kv.GetPosition(fs.Config.Path); ok && stored.Equal(pos) {
		skippedFileDocuments.WithLabelValues(fs.Config.Path).Inc()
		fs.log.Debugw("feed unchanged, skipping", "path", fs.Config.Path)
		return
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		fs.log.Error(err)
		return
	}

	var body io.Reader = f
	if strings.HasSuffix(fs.Config.Path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			fs.log.Errorw("could not open gzip feed", "path", fs.Config.Path, "error", err)
			return
		}
		defer gz.Close()
		body = gz
	}

	// the document is materialized so the file handle can be released
	// before downstream components consume it
	data, err := io.ReadAll(body)
	if err != nil {
		fs.log.Errorw("could not read feed", "path", fs.Config.Path, "error", err)
		return
	}

	receivedFileDocuments.WithLabelValues(fs.Config.Path).Inc()
	lastReceivedFileDocument.WithLabelValues(fs.Config.Path).SetToCurrentTime()
	fs.Publish(pipeline.Document{Source: fs.Config.Path, Body: bytes.NewReader(data)})

	if err := kv.SetPosition(fs.Config.Path, pos); err != nil {
		fs.log.Errorw("could not persist feed position", "path", fs.Config.Path, "error", err)
	}
}

func fingerprint(f *os.File) (stores.Position, error) {
	info, err := f.Stat()
	if err != nil {
		return stores.Position{}, err
	}

	h := xxhash.New()
	if _, err := io.Copy(h, io.LimitReader(f, fingerprintLen)); err != nil {
		return stores.Position{}, err
	}

	return stores.Position{
		Size:    info.Size(),
		ModTime: info.ModTime(),
		Digest:  h.Sum64(),
	}, nil
}
