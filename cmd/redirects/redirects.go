package main

import (
	"bufio"
	"debug/elf"
	"encoding/binary"
	"go/ast"
	"go/parser"
	"go/token"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
)

const (
	redirectDirective = "//go:redirect-from"
	redirectSection   = ".goredirectstbl"
)

// redirect maps a runtime symbol to the kernel function that replaces it.
type redirect struct {
	src string
	dst string

	srcVMA uint64
	dstVMA uint64
}

// modulePath returns the module path declared by the go.mod file in root.
func modulePath(root string) (string, error) {
	f, err := os.Open(filepath.Join(root, "go.mod"))
	if err != nil {
		return "", errors.Wrap(err, "open go.mod")
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 2 && fields[0] == "module" {
			return strings.Trim(fields[1], `"`), nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", errors.Wrap(err, "read go.mod")
	}

	return "", errors.Newf("%s: missing module directive", filepath.Join(root, "go.mod"))
}

// collectGoFiles returns the non-test Go files below dir.
func collectGoFiles(dir string) ([]string, error) {
	var goFiles []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}

		if filepath.Ext(path) == ".go" && !strings.HasSuffix(path, "_test.go") {
			goFiles = append(goFiles, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "scan %s", dir)
	}

	return goFiles, nil
}

// findRedirects parses the Go files below root/dir and returns one entry per
// go:redirect-from directive attached to a function declaration. Entries
// are sorted by source symbol.
func findRedirects(root, dir string) ([]*redirect, error) {
	module, err := modulePath(root)
	if err != nil {
		return nil, err
	}

	goFiles, err := collectGoFiles(filepath.Join(root, dir))
	if err != nil {
		return nil, err
	}

	var redirects []*redirect
	for _, goFile := range goFiles {
		fset := token.NewFileSet()

		f, err := parser.ParseFile(fset, goFile, nil, parser.ParseComments)
		if err != nil {
			return nil, errors.Wrapf(err, "parse %s", goFile)
		}

		rel, err := filepath.Rel(root, filepath.Dir(goFile))
		if err != nil {
			return nil, errors.Wrapf(err, "resolve package path of %s", goFile)
		}
		pkgPath := module + "/" + filepath.ToSlash(rel)

		for _, decl := range f.Decls {
			fnDecl, ok := decl.(*ast.FuncDecl)
			if !ok || fnDecl.Doc == nil || fnDecl.Recv != nil {
				continue
			}

			for _, comment := range fnDecl.Doc.List {
				if !strings.HasPrefix(comment.Text, redirectDirective) {
					continue
				}

				fqName := pkgPath + "." + fnDecl.Name.Name
				fields := strings.Fields(comment.Text)
				if len(fields) != 2 || fields[0] != redirectDirective {
					return nil, errors.Newf("malformed go:redirect-from syntax for %q", fqName)
				}

				redirects = append(redirects, &redirect{src: fields[1], dst: fqName})
			}
		}
	}

	sort.Slice(redirects, func(i, j int) bool { return redirects[i].src < redirects[j].src })
	return redirects, nil
}

// elfRedirectTableOffset returns the file offset and size of the redirect
// table section of the kernel image.
func elfRedirectTableOffset(imgFile string) (uint64, uint64, error) {
	f, err := elf.Open(imgFile)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "open %s", imgFile)
	}
	defer f.Close()

	section := f.Section(redirectSection)
	if section == nil {
		return 0, 0, errors.Newf("%s: missing %s section", imgFile, redirectSection)
	}

	return section.Offset, section.Size, nil
}

// elfResolveRedirectSymbols looks up the addresses of the source and
// destination symbol of each redirect.
func elfResolveRedirectSymbols(redirects []*redirect, imgFile string) error {
	f, err := elf.Open(imgFile)
	if err != nil {
		return errors.Wrapf(err, "open %s", imgFile)
	}
	defer f.Close()

	symbols, err := f.Symbols()
	if err != nil {
		return errors.Wrapf(err, "%s: read symbols", imgFile)
	}

	for _, redirect := range redirects {
		for _, symbol := range symbols {
			if symbol.Name == redirect.src {
				redirect.srcVMA = symbol.Value
			}
			if symbol.Name == redirect.dst {
				redirect.dstVMA = symbol.Value
			}
		}

		switch {
		case redirect.srcVMA == 0:
			return errors.Newf("%s: could not locate address of %q", imgFile, redirect.src)
		case redirect.dstVMA == 0:
			return errors.Newf("%s: could not locate address of %q", imgFile, redirect.dst)
		}
	}

	return nil
}

// elfWriteRedirectTable stores a (source, destination) address pair for
// each redirect in the redirect table section of the kernel image.
func elfWriteRedirectTable(redirects []*redirect, imgFile string) error {
	offset, size, err := elfRedirectTableOffset(imgFile)
	if err != nil {
		return err
	}

	if need := uint64(len(redirects) * 16); need > size {
		return errors.Newf("%s: redirect table needs %d bytes; section holds %d", imgFile, need, size)
	}

	f, err := os.OpenFile(imgFile, os.O_WRONLY, 0)
	if err != nil {
		return errors.Wrapf(err, "open %s for writing", imgFile)
	}
	defer f.Close()

	if _, err = f.Seek(int64(offset), io.SeekStart); err != nil {
		return errors.Wrapf(err, "seek to redirect table in %s", imgFile)
	}

	w := bufio.NewWriter(f)
	for _, redirect := range redirects {
		binary.Write(w, binary.LittleEndian, redirect.srcVMA)
		binary.Write(w, binary.LittleEndian, redirect.dstVMA)
	}

	return errors.Wrapf(w.Flush(), "write redirect table to %s", imgFile)
}
