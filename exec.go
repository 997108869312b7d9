package retouch

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/esimov/retouch/utils"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

// maxWorkers sets the maximum number of concurrently running workers.
const maxWorkers = 20

const badge = "✎ RETOUCH"

// validExtensions lists the file types the pipeline reads and writes.
var validExtensions = []string{".jpg", ".jpeg", ".png", ".bmp"}

// Ops holds the input and output of a pipeline run.
type Ops struct {
	Src, Dst, PipeName string
	Workers            int

	mu sync.Mutex
}

// Execute replays the pipeline over the source, which can be a file, an
// URL, a pipe or a directory. The files of a directory are edited
// concurrently and written under the destination directory. An interrupt
// cancels the editing in progress and removes the unfinished outputs.
func (p *Pipeline) Execute(op *Ops) {
	if p.Spinner == nil {
		p.Spinner = utils.NewSpinner(
			utils.StatusLine(badge, "⇢ editing the image...", utils.DefaultMessage),
			time.Millisecond*80, true)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fs, remote, err := op.stat()
	if remote != nil {
		defer os.Remove(remote.Name())
		defer remote.Close()
	}
	if err != nil {
		log.Fatalf(
			utils.DecorateText("Failed to load the source image: %v", utils.ErrorMessage),
			utils.DecorateText(err.Error(), utils.DefaultMessage),
		)
	}

	now := time.Now()
	switch mode := fs.Mode(); {
	case mode.IsDir():
		err = op.processDir(ctx, p)
	case mode.IsRegular() || mode&os.ModeNamedPipe != 0:
		ext := filepath.Ext(op.Dst)
		if !isValidExtension(strings.ToLower(ext), validExtensions) && op.Dst != op.PipeName {
			log.Fatalf(utils.DecorateText(fmt.Sprintf("%v file type not supported", ext), utils.ErrorMessage))
		}
		var r io.Reader
		if remote != nil {
			r = remote
		}
		if err = op.process(ctx, p, r, op.Src, op.Dst); err == nil {
			op.printOpStatus(op.Dst)
		}
	default:
		err = fmt.Errorf("%s is neither a file nor a directory", op.Src)
	}

	if err != nil {
		log.Fatalf(
			utils.DecorateText("\nError editing the image: %s", utils.ErrorMessage),
			utils.DecorateText(fmt.Sprintf("\n\tReason: %v\n", err.Error()), utils.DefaultMessage),
		)
	}
	fmt.Fprintf(os.Stderr, "\nExecution time: %s\n",
		utils.DecorateText(utils.FormatTime(time.Since(now)), utils.SuccessMessage))
}

// stat resolves the source. A remote source is downloaded into a temporary
// file, which is returned to the caller for clean up.
func (op *Ops) stat() (os.FileInfo, *os.File, error) {
	switch {
	case utils.IsValidUrl(op.Src):
		f, err := utils.DownloadImage(op.Src)
		if err != nil {
			return nil, f, err
		}
		fs, err := f.Stat()
		return fs, f, err
	case op.Src == op.PipeName:
		fs, err := os.Stdin.Stat()
		return fs, nil, err
	default:
		fs, err := os.Stat(op.Src)
		return fs, nil, err
	}
}

// processDir walks the source directory and edits the supported files on
// a bounded number of workers. The first failure cancels the rest.
func (op *Ops) processDir(ctx context.Context, p *Pipeline) error {
	if err := os.MkdirAll(op.Dst, 0755); err != nil {
		return errors.Wrap(err, "unable to create the destination directory")
	}
	workers := op.Workers
	if workers <= 0 || workers > maxWorkers {
		workers = runtime.NumCPU()
	}

	g, ctx := errgroup.WithContext(ctx)
	paths := make(chan string)
	g.Go(func() error {
		defer close(paths)
		return walkDir(ctx, op.Src, validExtensions, paths)
	})

	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for src := range paths {
				dst := filepath.Join(op.Dst, filepath.Base(src))
				if err := op.process(ctx, p, nil, src, dst); err != nil {
					return errors.Wrap(err, filepath.Base(src))
				}
				op.printOpStatus(dst)
			}
			return nil
		})
	}
	return g.Wait()
}

// process replays the pipeline over a single image. A non nil r takes the
// place of the input path. The output file is removed on failure.
func (op *Ops) process(ctx context.Context, p *Pipeline, r io.Reader, in, out string) (err error) {
	p.Spinner.Start()
	defer func() {
		if err != nil {
			p.Spinner.StopMsg = utils.StatusLine(badge, "editing the image failed... ✘", utils.ErrorMessage)
		} else {
			p.Spinner.StopMsg = utils.StatusLine(badge, "⇢ the image has been edited successfully ✔", utils.SuccessMessage)
		}
		p.Spinner.Stop()
	}()

	src, dst, err := op.pathToFile(r, in, out)
	if err != nil {
		return err
	}
	if f, ok := src.(*os.File); ok && f != os.Stdin && r == nil {
		defer f.Close()
	}
	if f, ok := dst.(*os.File); ok && f != os.Stdout {
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = errors.Wrap(cerr, "could not close the output file")
			}
			if err != nil {
				os.Remove(f.Name())
			}
		}()
	}
	return p.Process(ctx, src, dst, strings.ToLower(filepath.Ext(out)))
}

// pathToFile converts the source and destination paths to readable and writable files.
func (op *Ops) pathToFile(r io.Reader, in, out string) (io.Reader, io.Writer, error) {
	var (
		src io.Reader
		dst io.Writer
		err error
	)
	switch {
	case r != nil:
		src = r
	case in == op.PipeName:
		if term.IsTerminal(int(os.Stdin.Fd())) {
			return nil, nil, errors.New("`-` should be used with a pipe for stdin")
		}
		src = os.Stdin
	default:
		if src, err = os.Open(in); err != nil {
			return nil, nil, errors.Wrap(err, "unable to open the source file")
		}
	}

	if out == op.PipeName {
		if term.IsTerminal(int(os.Stdout.Fd())) {
			return nil, nil, errors.New("`-` should be used with a pipe for stdout")
		}
		dst = os.Stdout
	} else {
		if dst, err = os.OpenFile(out, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644); err != nil {
			if f, ok := src.(*os.File); ok && f != os.Stdin && r == nil {
				f.Close()
			}
			return nil, nil, errors.Wrap(err, "unable to create the destination file")
		}
	}
	return src, dst, nil
}

// printOpStatus reports a saved file. Workers share the terminal, hence the lock.
func (op *Ops) printOpStatus(fname string) {
	if fname == op.PipeName {
		return
	}
	op.mu.Lock()
	defer op.mu.Unlock()
	fmt.Fprintf(os.Stderr, "\nThe image has been saved as: %s %s\n\n",
		utils.DecorateText(filepath.Base(fname), utils.SuccessMessage),
		utils.DefaultColor,
	)
}

// walkDir walks the directory tree recursively and sends the path of each
// supported file to the paths channel, until the context is cancelled.
func walkDir(ctx context.Context, src string, exts []string, paths chan<- string) error {
	return filepath.Walk(src, func(path string, f os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !f.Mode().IsRegular() || !isValidExtension(strings.ToLower(filepath.Ext(f.Name())), exts) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case paths <- path:
		}
		return nil
	})
}

// isValidExtension checks for the supported extensions.
func isValidExtension(ext string, extensions []string) bool {
	return utils.Contains(extensions, ext)
}
