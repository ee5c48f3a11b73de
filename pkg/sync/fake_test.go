package sync

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/sdejongh/p4harmonize/internal/platform"
	"github.com/sdejongh/p4harmonize/pkg/models"
)

// fakeDepot is an in-memory stream with one workspace. Files opened through
// the control plane are applied to the depot by submit.
type fakeDepot struct {
	mu sync.Mutex

	stream        string
	root          string
	caseSensitive bool
	files         map[string][]byte // relative path -> head content
	links         map[string]bool   // head revisions of type symlink; content is the target

	workspace bool
	opened    map[string]models.ActionKind // relative path -> pending action
	moves     map[string]string            // new relative path -> old relative path

	calls    []string
	stageErr map[models.ActionKind]error
	failOn   int // fail the nth Stage call of a failing kind, 1-based
	staged   map[models.ActionKind][][]string
}

func newFakeDepot(root string, files map[string]string) *fakeDepot {
	d := &fakeDepot{
		stream:        "//ue/main",
		root:          root,
		caseSensitive: true,
		files:         map[string][]byte{},
		links:         map[string]bool{},
		opened:        map[string]models.ActionKind{},
		moves:         map[string]string{},
		stageErr:      map[models.ActionKind]error{},
		staged:        map[models.ActionKind][][]string{},
	}
	for p, content := range files {
		d.files[p] = []byte(content)
	}
	return d
}

func digestOf(content []byte) string {
	sum := md5.Sum(content)
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

func (d *fakeDepot) record(call string) {
	d.calls = append(d.calls, call)
}

func (d *fakeDepot) relative(path string) string {
	rel, err := platform.RelativeSlash(d.root, path)
	if err != nil {
		panic(err)
	}
	return rel
}

func (d *fakeDepot) QueryFiles(ctx context.Context, scope string) ([]*models.DestFile, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("fstat " + scope)

	var out []*models.DestFile
	for p, content := range d.files {
		headType := "binary"
		if d.links[p] {
			headType = "symlink"
		}
		out = append(out, &models.DestFile{
			Path:       p,
			DepotPath:  d.stream + "/" + p,
			ClientPath: platform.JoinSlash(d.root, p),
			HeadType:   headType,
			Kind:       models.KindBinary,
			HeadAction: "add",
			Size:       strconv.Itoa(len(content)),
			Digest:     digestOf(content),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (d *fakeDepot) IsCaseSensitive(ctx context.Context) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("info")
	return d.caseSensitive, nil
}

func (d *fakeDepot) Stage(ctx context.Context, kind models.ActionKind, paths []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record(string(kind))

	d.staged[kind] = append(d.staged[kind], append([]string(nil), paths...))
	if err := d.stageErr[kind]; err != nil && len(d.staged[kind]) == d.failOn {
		return err
	}
	for _, p := range paths {
		d.opened[d.relative(p)] = kind
	}
	return nil
}

func (d *fakeDepot) Rename(ctx context.Context, from, to string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("move")

	oldRel, newRel := d.relative(from), d.relative(to)
	d.moves[newRel] = oldRel
	d.opened[newRel] = models.ActionCaseRename
	return nil
}

func (d *fakeDepot) RevertUnmodified(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("revert")

	for p, kind := range d.opened {
		if kind != models.ActionEdit {
			continue
		}
		content, _, err := d.readWorkspace(p)
		if err == nil && string(content) == string(d.files[p]) {
			delete(d.opened, p)
		}
	}
	return nil
}

func (d *fakeDepot) WorkspaceExists(ctx context.Context) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("clients")
	return d.workspace, nil
}

func (d *fakeDepot) CreateWorkspace(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("client -i")
	d.workspace = true
	return nil
}

func (d *fakeDepot) DeleteWorkspace(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("client -d")
	d.workspace = false
	d.opened = map[string]models.ActionKind{}
	d.moves = map[string]string{}
	return nil
}

func (d *fakeDepot) Flush(ctx context.Context, scope string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("flush " + scope)
	return nil
}

// readWorkspace returns the content a submit would store: the file bytes,
// or the target of a symbolic link
func (d *fakeDepot) readWorkspace(rel string) ([]byte, bool, error) {
	full := platform.JoinSlash(d.root, rel)
	info, err := os.Lstat(full)
	if err != nil {
		return nil, false, err
	}
	if info.Mode()&os.ModeSymlink != 0 {
		target, err := os.Readlink(full)
		return []byte(target), true, err
	}
	content, err := os.ReadFile(full)
	return content, false, err
}

// submit applies every opened file to the depot, reading content from the workspace
func (d *fakeDepot) submit() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for p, kind := range d.opened {
		switch kind {
		case models.ActionDelete:
			delete(d.files, p)
			delete(d.links, p)
		default:
			if old, ok := d.moves[p]; ok {
				delete(d.files, old)
				delete(d.links, old)
			}
			content, link, err := d.readWorkspace(p)
			if err != nil {
				return err
			}
			d.files[p] = content
			d.links[p] = link
		}
	}
	d.opened = map[string]models.ActionKind{}
	d.moves = map[string]string{}
	return nil
}

func (d *fakeDepot) openedFiles() map[string]models.ActionKind {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]models.ActionKind, len(d.opened))
	for k, v := range d.opened {
		out[k] = v
	}
	return out
}

func (d *fakeDepot) called(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, c := range d.calls {
		if c == name || strings.HasPrefix(c, name+" ") {
			return true
		}
	}
	return false
}
