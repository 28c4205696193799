// Package bundle moves artifacts between stores as a deterministic TAR file.
//
// Layout:
//
//	artifacts/<cid>   one entry per artifact, sorted by identifier
//	index.json        optional, non-authoritative: sizes and name labels
//
// Entries carry fixed headers (mode 0644, uid/gid 0, zero mtime) so the
// same artifacts always produce the same bytes.
package bundle

import (
	"archive/tar"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/ipfs/go-cid"

	"github.com/waelchateur/ApkSignatureKill/artifact"
)

// FormatVersion is the index.json schema version.
const FormatVersion = 1

const (
	artifactDir = "artifacts/"
	indexName   = "index.json"
)

var epoch = time.Unix(0, 0).UTC()

type ExportOptions struct {
	// Labels names artifacts in the index, e.g. "manifest" or "receipt".
	// Every labelled identifier is exported too.
	Labels map[string]cid.Cid
	// IncludeIndex writes index.json.
	IncludeIndex bool
}

// Export writes the artifacts ids (plus any labelled ones) read from store.
// Every artifact is checked against its identifier before it is written.
func Export(ctx context.Context, w io.Writer, store artifact.Store, ids []cid.Cid, opts ExportOptions) error {
	if store == nil {
		return fmt.Errorf("bundle: nil store")
	}
	uniq := make(map[string]cid.Cid, len(ids)+len(opts.Labels))
	for _, id := range ids {
		if !id.Defined() {
			return artifact.ErrInvalidID
		}
		uniq[id.String()] = id
	}
	labelNames := make([]string, 0, len(opts.Labels))
	for name, id := range opts.Labels {
		if name == "" {
			return fmt.Errorf("bundle: empty label name")
		}
		if !id.Defined() {
			return artifact.ErrInvalidID
		}
		uniq[id.String()] = id
		labelNames = append(labelNames, name)
	}
	sort.Strings(labelNames)

	names := make([]string, 0, len(uniq))
	for s := range uniq {
		names = append(names, s)
	}
	sort.Strings(names)

	tw := tar.NewWriter(w)
	entries := make([]indexEntry, 0, len(names))
	for _, s := range names {
		id := uniq[s]
		b, err := store.Get(ctx, id)
		if err != nil {
			_ = tw.Close()
			return fmt.Errorf("bundle: %s: %w", s, err)
		}
		if err := artifact.Check(id, b); err != nil {
			_ = tw.Close()
			return err
		}
		if err := writeFile(tw, artifactDir+s, b); err != nil {
			_ = tw.Close()
			return err
		}
		entries = append(entries, indexEntry{CID: s, Size: len(b)})
	}

	if opts.IncludeIndex {
		idx := index{
			Version:   FormatVersion,
			CIDCodec:  "raw",
			Multihash: "sha2-256",
			Artifacts: entries,
		}
		for _, name := range labelNames {
			idx.Labels = append(idx.Labels, indexLabel{Name: name, CID: opts.Labels[name].String()})
		}
		b, err := json.Marshal(idx)
		if err != nil {
			_ = tw.Close()
			return err
		}
		if err := writeFile(tw, indexName, append(b, '\n')); err != nil {
			_ = tw.Close()
			return err
		}
	}
	return tw.Close()
}

type ImportOptions struct {
	// IgnoreUnknown skips entries outside the bundle layout instead of
	// failing.
	IgnoreUnknown bool
}

// Import puts every artifact of the bundle read from r into store and
// returns the labels of its index, if any. Each entry must hash to the
// identifier in its name.
func Import(ctx context.Context, r io.Reader, store artifact.Store, opts ImportOptions) (map[string]cid.Cid, error) {
	if store == nil {
		return nil, fmt.Errorf("bundle: nil store")
	}
	tr := tar.NewReader(r)
	seen := map[string]bool{}
	labels := map[string]cid.Cid{}

	for {
		h, err := tr.Next()
		if err == io.EOF {
			return labels, nil
		}
		if err != nil {
			return nil, err
		}
		name := cleanPath(h.Name)
		if name == "" {
			return nil, fmt.Errorf("bundle: invalid entry path %q", h.Name)
		}
		if h.Typeflag != tar.TypeReg {
			if opts.IgnoreUnknown {
				continue
			}
			return nil, fmt.Errorf("bundle: unexpected entry type %v (%s)", h.Typeflag, name)
		}

		if name == indexName {
			if err := readLabels(tr, labels); err != nil {
				return nil, err
			}
			continue
		}
		if !strings.HasPrefix(name, artifactDir) {
			if opts.IgnoreUnknown {
				continue
			}
			return nil, fmt.Errorf("bundle: unknown entry %s", name)
		}

		id, err := artifact.Parse(strings.TrimPrefix(name, artifactDir))
		if err != nil {
			return nil, err
		}
		payload, err := io.ReadAll(tr)
		if err != nil {
			return nil, err
		}
		if err := artifact.Check(id, payload); err != nil {
			return nil, err
		}
		if seen[id.KeyString()] {
			return nil, fmt.Errorf("bundle: duplicate artifact %s", id)
		}
		seen[id.KeyString()] = true

		got, err := store.Put(ctx, payload)
		if err != nil {
			return nil, err
		}
		if !got.Equals(id) {
			return nil, artifact.ErrIDMismatch
		}
	}
}

// readLabels decodes the index labels. The index is advisory, so only
// labels with well-formed identifiers are kept.
func readLabels(r io.Reader, labels map[string]cid.Cid) error {
	var idx index
	if err := json.NewDecoder(r).Decode(&idx); err != nil {
		return fmt.Errorf("bundle: index: %w", err)
	}
	for _, l := range idx.Labels {
		if id, err := artifact.Parse(l.CID); err == nil && l.Name != "" {
			labels[l.Name] = id
		}
	}
	return nil
}

type index struct {
	Version   int          `json:"version"`
	CIDCodec  string       `json:"cidCodec"`
	Multihash string       `json:"multihash"`
	Artifacts []indexEntry `json:"artifacts"`
	Labels    []indexLabel `json:"labels,omitempty"`
}

type indexEntry struct {
	CID  string `json:"cid"`
	Size int    `json:"size"`
}

type indexLabel struct {
	Name string `json:"name"`
	CID  string `json:"cid"`
}

func writeFile(tw *tar.Writer, name string, content []byte) error {
	hdr := &tar.Header{
		Name:     name,
		Mode:     0o644,
		Size:     int64(len(content)),
		ModTime:  epoch,
		Typeflag: tar.TypeReg,
		Format:   tar.FormatUSTAR,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err := io.Copy(tw, bytes.NewReader(content))
	return err
}

func cleanPath(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimPrefix(name, "./")
	name = strings.TrimPrefix(name, "/")
	if name == "" {
		return ""
	}
	for _, part := range strings.Split(name, "/") {
		if part == "" || part == "." || part == ".." {
			return ""
		}
	}
	return name
}
