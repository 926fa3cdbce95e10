package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/qtshock/qtshockd/pkg/log"
	"github.com/qtshock/qtshockd/progress"
)

// Source selects where binaries are acquired from.
type Source string

const (
	SourceLocal  Source = "local"
	SourceServer Source = "server"
)

// ParseSource accepts exactly "local" or "server".
func ParseSource(s string) (Source, error) {
	switch Source(s) {
	case SourceLocal, SourceServer:
		return Source(s), nil
	default:
		return "", fmt.Errorf("%w %q", ErrInvalidSource, s)
	}
}

// Artifact file names, shared by the server layout and bin/.
const (
	FirmwareFile   = "firmware.elf"
	BootloaderFile = "bootloader.bin"
	PartitionsFile = "partitions.bin"

	// LocalDir is the directory under the working directory holding local binaries.
	LocalDir = "bin"

	// TempPrefix names scratch directories.
	TempPrefix = "qtstmp"
)

// Progress checkpoints.
const (
	MsgStarting    = "<y>Starting flash...</y>"
	MsgDownloading = "<bl>Downloading binaries...</bl>"
	MsgReadApp     = "<y>Read local firmware binary!</y>"
)

type artifact struct {
	name string
	file string
}

var artifacts = []artifact{
	{"firmware", FirmwareFile},
	{"bootloader", BootloaderFile},
	{"partitions", PartitionsFile},
}

// ImageSet is a fully materialized set of binaries. All three are read
// into memory by Acquire.
type ImageSet struct {
	// Application is the firmware ELF read from ApplicationPath.
	Application     []byte
	ApplicationPath string

	Bootloader     []byte
	BootloaderPath string

	Partitions     []byte
	PartitionsPath string

	// Dir is the scratch directory, empty for local sources.
	Dir string
}

// Close removes the scratch directory, if any.
func (s *ImageSet) Close() error {
	if s == nil || s.Dir == "" {
		return nil
	}
	dir := s.Dir
	s.Dir = ""
	return os.RemoveAll(dir)
}

// Acquirer produces ImageSets.
type Acquirer struct {
	fetcher  Fetcher
	workDir  func() (string, error)
	readFile func(string) ([]byte, error)
	tempDir  string
	logger   log.Logger
}

// Option configures an Acquirer.
type Option func(*Acquirer)

// WithFetcher replaces the HTTPS fetcher used for the server source.
func WithFetcher(f Fetcher) Option {
	return func(a *Acquirer) {
		if f != nil {
			a.fetcher = f
		}
	}
}

// WithWorkDir fixes the directory whose bin/ holds local binaries.
func WithWorkDir(dir string) Option {
	return func(a *Acquirer) {
		if dir != "" {
			a.workDir = func() (string, error) { return dir, nil }
		}
	}
}

// WithTempDir sets the parent of scratch directories.
func WithTempDir(dir string) Option {
	return func(a *Acquirer) {
		a.tempDir = dir
	}
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(a *Acquirer) {
		if l != nil {
			a.logger = l
		}
	}
}

// New returns an Acquirer downloading from DefaultBaseURL and reading local
// binaries below the process working directory.
func New(opts ...Option) *Acquirer {
	a := &Acquirer{
		fetcher:  NewHTTPFetcher(DefaultBaseURL, nil),
		workDir:  os.Getwd,
		readFile: os.ReadFile,
		logger:   log.Std(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Acquire validates source, then materializes the image set. The source is
// checked before any file or network access. On failure, including a panic
// in a fetcher, nothing is left on disk.
func (a *Acquirer) Acquire(ctx context.Context, source string, n progress.Notifier) (*ImageSet, error) {
	src, err := ParseSource(source)
	if err != nil {
		return nil, err
	}
	n = progress.OrNop(n)
	n.Stage(MsgStarting, 0)

	var set *ImageSet
	ok := false
	defer func() {
		if !ok {
			set.Close()
		}
	}()

	switch src {
	case SourceServer:
		set, err = a.download(ctx, n)
	default:
		set, err = a.local()
	}
	if err != nil {
		return nil, err
	}

	for _, r := range []struct {
		art  artifact
		path string
		dst  *[]byte
	}{
		{artifacts[0], set.ApplicationPath, &set.Application},
		{artifacts[1], set.BootloaderPath, &set.Bootloader},
		{artifacts[2], set.PartitionsPath, &set.Partitions},
	} {
		data, err := a.readFile(r.path)
		if err != nil {
			return nil, &Error{Artifact: r.art.name, Path: r.path, Kind: ReadFailed, Err: err}
		}
		*r.dst = data
	}
	n.Stage(MsgReadApp, 70)

	a.logger.Debug("Acquired binaries", "source", string(src), "application", len(set.Application),
		"bootloader", len(set.Bootloader), "partitions", len(set.Partitions))
	ok = true
	return set, nil
}

func (a *Acquirer) download(ctx context.Context, n progress.Notifier) (*ImageSet, error) {
	dir, err := os.MkdirTemp(a.tempDir, TempPrefix)
	if err != nil {
		return nil, &Error{Kind: TempDirFailed, Err: err}
	}
	set := &ImageSet{
		Dir:             dir,
		ApplicationPath: filepath.Join(dir, FirmwareFile),
		BootloaderPath:  filepath.Join(dir, BootloaderFile),
		PartitionsPath:  filepath.Join(dir, PartitionsFile),
	}

	ok := false
	defer func() {
		if !ok {
			set.Close()
		}
	}()

	n.Stage(MsgDownloading, 15)

	steps := make([]Step, 0, len(artifacts))
	for _, art := range artifacts {
		steps = append(steps, a.fetchStep(dir, art))
	}
	if err := Run(ctx, steps...); err != nil {
		return nil, err
	}
	ok = true
	return set, nil
}

func (a *Acquirer) fetchStep(dir string, art artifact) Step {
	return Step{
		Name: art.name,
		Run: func(ctx context.Context) error {
			path := filepath.Join(dir, art.file)

			body, err := a.fetcher.Fetch(ctx, art.file)
			if err != nil {
				return &Error{Artifact: art.name, Path: path, Kind: FetchFailed, Err: err}
			}
			defer body.Close()

			f, err := os.Create(path)
			if err != nil {
				return &Error{Artifact: art.name, Path: path, Kind: CreateFailed, Err: err}
			}
			n, err := io.Copy(f, body)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return &Error{Artifact: art.name, Path: path, Kind: CopyFailed, Err: err}
			}

			a.logger.Debug("Downloaded binary", "artifact", art.name, "bytes", n)
			return nil
		},
	}
}

func (a *Acquirer) local() (*ImageSet, error) {
	wd, err := a.workDir()
	if err != nil {
		return nil, &Error{Kind: WorkDirFailed, Err: err}
	}
	bin := filepath.Join(wd, LocalDir)

	for _, art := range artifacts {
		path := filepath.Join(bin, art.file)
		info, err := os.Stat(path)
		if err == nil && info.IsDir() {
			err = fmt.Errorf("%s is a directory", path)
		}
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, &Error{Artifact: art.name, Path: path, Kind: ReadFailed, Err: err}
			}
			return nil, &Error{Artifact: art.name, Path: path, Kind: LocalFileMissing, Err: err}
		}
	}

	return &ImageSet{
		ApplicationPath: filepath.Join(bin, FirmwareFile),
		BootloaderPath:  filepath.Join(bin, BootloaderFile),
		PartitionsPath:  filepath.Join(bin, PartitionsFile),
	}, nil
}
