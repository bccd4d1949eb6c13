package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/keks/mempart"
	"github.com/keks/mempart/memfile"
	"github.com/keks/mempart/web"
)

const usage = `usage: mempart [-config file] [-image file] <command> [args]

commands:
  create [-capacity n]   create an empty image
  ls                     list files as YAML
  put name [file]        replace a file's content with file or stdin
  cat name               write a file's content to stdout
  rm name                delete a file
  mv old new             rename a file
  inspect                dump the partition internals
  serve [-addr addr]     serve the image over HTTP, save on interrupt
`

func main() {
	var configPath, image string
	flag.StringVar(&configPath, "config", "", "Path to YAML config")
	flag.StringVar(&image, "image", "", "Path to partition image (overrides config)")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	cfg, err := LoadConfig(configPath)
	if err != nil {
		log.Fatal(err)
	}
	if image != "" {
		cfg.Image = image
	}

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(cfg, flag.Args(), os.Stdin, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(cfg Config, args []string, stdin io.Reader, stdout io.Writer) error {
	cmd, args := args[0], args[1:]

	switch cmd {
	case "create":
		fs := flag.NewFlagSet("create", flag.ContinueOnError)
		fs.IntVar(&cfg.Capacity, "capacity", cfg.Capacity, "Capacity in bytes")
		if err := fs.Parse(args); err != nil {
			return err
		}

		p, err := memfile.New(cfg.Capacity)
		if err != nil {
			return err
		}
		return saveImage(cfg.Image, p)

	case "ls":
		p, err := loadImage(cfg.Image)
		if err != nil {
			return err
		}

		out, err := p.Manifest().YAML()
		if err != nil {
			return err
		}
		_, err = stdout.Write(out)
		return err

	case "put":
		if len(args) < 1 || len(args) > 2 {
			return errors.Errorf("put: expected name [file]")
		}

		var src io.Reader = stdin
		if len(args) == 2 {
			f, err := os.Open(args[1])
			if err != nil {
				return errors.Wrap(err, "put")
			}
			defer f.Close()
			src = f
		}

		data, err := ioutil.ReadAll(src)
		if err != nil {
			return errors.Wrap(err, "put: read input")
		}

		return update(cfg.Image, func(p *memfile.Partition) error {
			return p.Replace(mempart.FileName(args[0]), data)
		})

	case "cat":
		if len(args) != 1 {
			return errors.Errorf("cat: expected name")
		}

		p, err := loadImage(cfg.Image)
		if err != nil {
			return err
		}

		f, err := p.OpenFile(mempart.FileName(args[0]), memfile.OpenRead)
		if err != nil {
			return err
		}
		_, err = io.Copy(stdout, f)
		return err

	case "rm":
		if len(args) != 1 {
			return errors.Errorf("rm: expected name")
		}
		return update(cfg.Image, func(p *memfile.Partition) error {
			return p.Delete(mempart.FileName(args[0]))
		})

	case "mv":
		if len(args) != 2 {
			return errors.Errorf("mv: expected old and new name")
		}
		return update(cfg.Image, func(p *memfile.Partition) error {
			return p.Rename(mempart.FileName(args[0]), mempart.FileName(args[1]))
		})

	case "inspect":
		p, err := loadImage(cfg.Image)
		if err != nil {
			return err
		}
		_, err = io.WriteString(stdout, memfile.SDump(p))
		return err

	case "serve":
		fs := flag.NewFlagSet("serve", flag.ContinueOnError)
		fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "Address of server")
		if err := fs.Parse(args); err != nil {
			return err
		}
		return serve(cfg)

	default:
		return errors.Errorf("unknown command %q", cmd)
	}
}

func serve(cfg Config) error {
	p, err := loadImage(cfg.Image)
	if err != nil {
		return err
	}

	s := web.NewServer(p)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)

	errc := make(chan error, 1)
	go func() {
		errc <- s.ListenAndServe(cfg.Addr)
	}()

	select {
	case err := <-errc:
		return err
	case <-sig:
		log.Printf("[web] Saving %v", cfg.Image)
		return s.Partition(func(p *memfile.Partition) error {
			return saveImage(cfg.Image, p)
		})
	}
}

func loadImage(path string) (*memfile.Partition, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read image %q", path)
	}

	p, err := memfile.Load(data)
	if err != nil {
		return nil, errors.Wrapf(err, "load image %q", path)
	}
	return p, nil
}

// saveImage replaces the image at path through a temporary file.
func saveImage(path string, p *memfile.Partition) error {
	var buf bytes.Buffer
	if _, err := p.WriteTo(&buf); err != nil {
		return err
	}

	tmp, err := ioutil.TempFile(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return errors.Wrap(err, "save image")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return errors.Wrap(err, "save image")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "save image")
	}

	return errors.Wrap(os.Rename(tmp.Name(), path), "save image")
}

func update(path string, fn func(*memfile.Partition) error) error {
	p, err := loadImage(path)
	if err != nil {
		return err
	}

	if err := fn(p); err != nil {
		return err
	}

	return saveImage(path, p)
}
