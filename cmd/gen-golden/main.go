package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"golang.org/x/tools/txtar"
	"pkt.systems/streamdown"
)

func main() {
	var (
		root       string
		headingIDs bool
	)
	flags := pflag.NewFlagSet("gen-golden", pflag.ExitOnError)
	flags.StringVar(&root, "root", "testdata", "Directory holding .md sources and .txt case archives")
	flags.BoolVar(&headingIDs, "heading-ids", false, "Render goldens with heading ids")
	if err := flags.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}
	opts := []streamdown.Option{streamdown.WithHeadingIDs(headingIDs)}

	var mdPaths, archives []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		switch filepath.Ext(path) {
		case ".md":
			mdPaths = append(mdPaths, path)
		case ".txt":
			archives = append(archives, path)
		}
		return nil
	})
	if err != nil {
		fatalf("walk %s: %v", root, err)
	}
	if len(mdPaths) == 0 && len(archives) == 0 {
		fatalf("no markdown files or case archives found under %s", root)
	}
	for _, path := range mdPaths {
		src, err := os.ReadFile(path)
		if err != nil {
			fatalf("read %s: %v", path, err)
		}
		html, err := streamdown.Convert(string(src), opts...)
		if err != nil {
			fatalf("convert %s: %v", path, err)
		}
		goldenPath := strings.TrimSuffix(path, ".md") + ".html"
		if err := os.WriteFile(goldenPath, []byte(html), 0o644); err != nil {
			fatalf("write %s: %v", goldenPath, err)
		}
		fmt.Fprintf(os.Stdout, "wrote %s\n", goldenPath)
	}
	for _, path := range archives {
		n, err := regenerateArchive(path, opts)
		if err != nil {
			fatalf("%s: %v", path, err)
		}
		fmt.Fprintf(os.Stdout, "wrote %s (%d cases)\n", path, n)
	}
}

// regenerateArchive rewrites the "NAME.html" file that follows every
// "NAME.md" file of a txtar archive.
func regenerateArchive(path string, opts []streamdown.Option) (int, error) {
	ar, err := txtar.ParseFile(path)
	if err != nil {
		return 0, err
	}
	archiveOpts, err := archiveOptions(ar.Comment)
	if err != nil {
		return 0, err
	}
	opts = append(opts[:len(opts):len(opts)], archiveOpts...)
	var files []txtar.File
	cases := 0
	for i := 0; i < len(ar.Files); i++ {
		f := ar.Files[i]
		if !strings.HasSuffix(f.Name, ".md") {
			files = append(files, f)
			continue
		}
		// A trailing ^D marks input without a final newline.
		src := strings.ReplaceAll(string(f.Data), "^D\n", "")
		html, err := streamdown.Convert(src, opts...)
		if err != nil {
			return 0, fmt.Errorf("convert %s: %w", f.Name, err)
		}
		files = append(files, f, txtar.File{
			Name: strings.TrimSuffix(f.Name, ".md") + ".html",
			Data: []byte(html + "\n"),
		})
		cases++
		if i+1 < len(ar.Files) && ar.Files[i+1].Name == strings.TrimSuffix(f.Name, ".md")+".html" {
			i++
		}
	}
	ar.Files = files
	return cases, os.WriteFile(path, txtar.Format(ar), 0o644)
}

// archiveOptions reads "Key: value" lines of an archive comment.
func archiveOptions(comment []byte) ([]streamdown.Option, error) {
	var opts []streamdown.Option
	for _, line := range strings.Split(string(comment), "\n") {
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)
		switch key {
		case "HeadingIDs":
			b, err := strconv.ParseBool(value)
			if err != nil {
				return nil, err
			}
			opts = append(opts, streamdown.WithHeadingIDs(b))
		case "FrontMatter":
			b, err := strconv.ParseBool(value)
			if err != nil {
				return nil, err
			}
			opts = append(opts, streamdown.WithFrontMatter(b))
		case "LanguagePrefix":
			opts = append(opts, streamdown.WithLanguagePrefix(value))
		default:
			return nil, fmt.Errorf("unknown option: %q", key)
		}
	}
	return opts, nil
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
