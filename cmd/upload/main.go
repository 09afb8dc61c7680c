package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	models "clipsify/internal/media"
	"clipsify/internal/uploader"

	"github.com/fatih/color"
	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	green = color.New(color.FgGreen).SprintFunc()
	red   = color.New(color.FgRed).SprintFunc()
	gray  = color.New(color.FgHiBlack).SprintFunc()
)

type options struct {
	server      string
	token       string
	endpoint    string
	kind        string
	title       string
	description string
	thumbnail   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "clipsify-upload <file>",
		Short:         "Upload an image or video to the CDN and record it",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			err := run(ctx, opts, args[0])
			if err != nil {
				fmt.Fprintln(os.Stderr, red(describe(err)))
			}
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.server, "server", envOr("CLIPSIFY_SERVER", "http://localhost:3000"), "API base URL")
	f.StringVar(&opts.token, "token", os.Getenv("CLIPSIFY_TOKEN"), "session token")
	f.StringVar(&opts.endpoint, "upload-endpoint", uploader.DefaultUploadEndpoint, "CDN upload endpoint")
	f.StringVar(&opts.kind, "kind", "", "image or video (default: from the file type)")
	f.StringVar(&opts.title, "title", "", "title")
	f.StringVar(&opts.description, "description", "", "description")
	f.StringVar(&opts.thumbnail, "thumbnail", "", "thumbnail URL for videos")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("description")
	return cmd
}

func run(ctx context.Context, opts *options, file string) error {
	fh, err := os.Open(file)
	if err != nil {
		return err
	}
	defer fh.Close()
	st, err := fh.Stat()
	if err != nil {
		return err
	}

	contentType, err := detectType(fh, file)
	if err != nil {
		return err
	}
	kind := models.Kind(opts.kind)
	if kind == "" {
		kind = models.Kind(strings.SplitN(contentType, "/", 2)[0])
	}

	client := uploader.New(opts.server, http.DefaultClient)
	client.UploadEndpoint = opts.endpoint

	tty := term.IsTerminal(int(os.Stdout.Fd()))
	res, err := client.Upload(ctx, uploader.File{
		Name:        filepath.Base(file),
		ContentType: contentType,
		Size:        st.Size(),
		Body:        fh,
	}, kind, func(pct int) {
		if tty {
			fmt.Printf("\r%s %3d%%", gray("uploading"), pct)
		} else if pct%25 == 0 {
			fmt.Printf("uploading %d%%\n", pct)
		}
	})
	if tty {
		fmt.Println()
	}
	if err != nil {
		return err
	}

	asset, err := client.Commit(ctx, opts.token, kind, uploader.CommitRequest{
		Title:        opts.title,
		Description:  opts.description,
		URL:          res.URL,
		ThumbnailURL: opts.thumbnail,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, gray("cdn url: "+res.URL))
		return err
	}
	fmt.Println(green(fmt.Sprintf("saved %s %s", asset.Kind, asset.ID.Hex())))
	fmt.Println(asset.SourceURL)
	return nil
}

// detectType prefers the extension and falls back to sniffing the content.
func detectType(fh *os.File, name string) (string, error) {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); ct != "" {
		return ct, nil
	}
	mt, err := mimetype.DetectReader(fh)
	if err != nil {
		return "", err
	}
	if _, err := fh.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	ct, _, _ := strings.Cut(mt.String(), ";")
	return ct, nil
}

// describe turns an upload error into the message shown to the user.
func describe(err error) string {
	var verr *uploader.ValidationError
	switch {
	case errors.As(err, &verr):
		return verr.Error()
	case errors.Is(err, uploader.ErrAuthRequest):
		return "Could not get upload permission from the server. Try again."
	case errors.Is(err, uploader.ErrAuthDenied):
		return "Upload permission expired or was rejected. Try again."
	case errors.Is(err, uploader.ErrAborted):
		return "Upload cancelled."
	case errors.Is(err, uploader.ErrNetwork):
		return "Network error while uploading. Check your connection."
	case errors.Is(err, uploader.ErrServer):
		return "The media service could not process the file."
	case errors.Is(err, uploader.ErrCommit):
		return "File uploaded but not recorded: " + err.Error()
	}
	return err.Error()
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
