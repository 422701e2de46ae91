package citrii

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"

	"github.com/bodgit/citrii/asset"
	"github.com/bodgit/citrii/texture"
	"github.com/pkg/errors"
)

// Export formats.
const (
	FormatPNG = "png"
	FormatGIF = "gif"
)

type textureJob struct {
	section asset.Section
	index   int
	raw     *texture.Raw
}

type textureResult struct {
	textureJob
	png []byte
}

// ExportOptions controls ExportTextures.
type ExportOptions struct {
	// Dir receives one file per texture item. If empty no files are
	// written and the textures only go to the catalog.
	Dir     string
	Format  string
	Workers int
}

func textureFilename(section asset.Section, index int, format string) string {
	return fmt.Sprintf("%s_%03d.%s", section, index, format)
}

func (c *Citrii) findTextures(ctx context.Context) (<-chan textureJob, <-chan error, error) {
	if c.asset == nil {
		return nil, nil, errors.New("citrii: no asset open")
	}

	out := make(chan textureJob)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		for _, s := range asset.SectionRoles {
			if !s.IsTexture() {
				continue
			}
			for i, raw := range c.asset.Textures(s) {
				// Empty items have nothing to export
				if raw == nil || raw.Width == 0 || raw.Height == 0 {
					continue
				}

				select {
				case out <- textureJob{s, i, raw}:
				case <-ctx.Done():
					errc <- errors.New("export cancelled")
					return
				}
			}
		}
	}()
	return out, errc, nil
}

// writeTexture writes m to file, reusing the PNG encoding b when the
// format allows.
func writeTexture(file string, m image.Image, b []byte, format string) error {
	f, err := os.Create(file)
	if err != nil {
		return err
	}
	defer f.Close()

	switch format {
	case FormatGIF:
		err = texture.WriteGIF(f, m)
	default:
		_, err = f.Write(b)
	}
	if err != nil {
		return err
	}

	return f.Close()
}

func (c *Citrii) textureWorker(ctx context.Context, in <-chan textureJob, opts ExportOptions) (<-chan textureResult, <-chan error, error) {
	out := make(chan textureResult)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		for job := range in {
			m, err := job.raw.Image()
			if err != nil {
				errc <- errors.Wrapf(err, "%s %d", job.section, job.index)
				return
			}

			b := new(bytes.Buffer)
			if err := png.Encode(b, m); err != nil {
				errc <- err
				return
			}

			if opts.Dir != "" {
				file := filepath.Join(opts.Dir, textureFilename(job.section, job.index, opts.Format))
				if err := writeTexture(file, m, b.Bytes(), opts.Format); err != nil {
					errc <- err
					return
				}
				c.logger.Printf("Wrote %s (%dx%d %s)\n", file, job.raw.Width, job.raw.Height, job.raw.Format)
			}

			select {
			case out <- textureResult{job, b.Bytes()}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, errc, nil
}

// catalogWorker is the only writer to the catalog. It drains in even after
// a failure so the workers never block.
func (c *Citrii) catalogWorker(in <-chan textureResult) (<-chan error, error) {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		var failed bool
		for r := range in {
			if failed || c.catalog == nil {
				continue
			}
			added, err := c.catalog.Add(r.section, r.index, r.raw, r.png)
			if err != nil {
				errc <- err
				failed = true
				continue
			}
			if !added {
				c.logger.Printf("Catalog already has %s %d\n", r.section, r.index)
			}
		}
	}()
	return errc, nil
}

func waitForPipeline(errs ...<-chan error) error {
	errc := merge(errs...)
	for err := range errc {
		if err != nil {
			return err
		}
	}
	return nil
}

func merge[T any](cs ...<-chan T) <-chan T {
	var wg sync.WaitGroup
	out := make(chan T, len(cs))
	wg.Add(len(cs))
	for _, c := range cs {
		go func(c <-chan T) {
			for n := range c {
				out <- n
			}
			wg.Done()
		}(c)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// ExportTextures decodes every texture item in the open asset, writing
// each to opts.Dir and recording it in the catalog if one is open.
func (c *Citrii) ExportTextures(ctx context.Context, opts ExportOptions) error {
	switch opts.Format {
	case "":
		opts.Format = FormatPNG
	case FormatPNG, FormatGIF:
	default:
		return errors.Errorf("citrii: unknown export format %q", opts.Format)
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Dir == "" && c.catalog == nil {
		return errors.New("citrii: nowhere to export to")
	}

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	var errcList []<-chan error

	jobs, errc, err := c.findTextures(ctx)
	if err != nil {
		return err
	}
	errcList = append(errcList, errc)

	var results []<-chan textureResult
	for i := 0; i < opts.Workers; i++ {
		out, errc, err := c.textureWorker(ctx, jobs, opts)
		if err != nil {
			return err
		}
		results = append(results, out)
		errcList = append(errcList, errc)
	}

	errc, err = c.catalogWorker(merge(results...))
	if err != nil {
		return err
	}
	errcList = append(errcList, errc)

	return waitForPipeline(errcList...)
}
