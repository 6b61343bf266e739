// Package content loads card and scene templates from YAML files.
package content

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/LivingInDrm/sudanlike/internal/card"
	"github.com/LivingInDrm/sudanlike/internal/effect"
	"github.com/LivingInDrm/sudanlike/internal/scene"
	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidContent = errors.New("invalid content")
	ErrDuplicateID    = errors.New("duplicate content id")
	ErrDanglingRef    = errors.New("reference to unknown content")
)

// LoadError ties a content problem to the file it came from.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string { return e.Source + ": " + e.Err.Error() }
func (e *LoadError) Unwrap() error { return e.Err }

// Catalog holds validated templates. It is filled once at startup and is
// read-only afterwards.
type Catalog struct {
	cards  map[string]card.Template
	scenes map[string]scene.Template
	refs   map[string][]effect.Effects
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{
		cards:  make(map[string]card.Template),
		scenes: make(map[string]scene.Template),
		refs:   make(map[string][]effect.Effects),
	}
}

// LoadDir loads every .yaml and .yml file under dir in lexical order and
// then checks cross references.
func LoadDir(dir string) (*Catalog, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			if !d.IsDir() {
				files = append(files, path)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan content dir %s: %w", dir, err)
	}
	slices.Sort(files)

	c := New()
	for _, f := range files {
		if err := c.LoadFile(f); err != nil {
			return nil, err
		}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadFile adds the templates of one file.
func (c *Catalog) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read content: %w", err)
	}
	return c.Parse(data, path)
}

// Parse adds the templates of one or more YAML documents. Unknown fields are
// rejected. Nothing is added if any template is invalid.
func (c *Catalog) Parse(data []byte, source string) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var docs []Document
	for {
		var doc Document
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return &LoadError{Source: source, Err: fmt.Errorf("%w: %v", ErrInvalidContent, err)}
		}
		docs = append(docs, doc)
	}

	cards := make(map[string]card.Template)
	scenes := make(map[string]scene.Template)
	refs := make(map[string][]effect.Effects)
	for _, doc := range docs {
		for i, rec := range doc.Cards {
			tpl, err := cardTemplate(rec)
			if err != nil {
				return &LoadError{Source: source, Err: fmt.Errorf("card %d: %w", i, err)}
			}
			if _, dup := cards[tpl.ID]; dup || c.hasCard(tpl.ID) {
				return &LoadError{Source: source, Err: fmt.Errorf("%w: card %s", ErrDuplicateID, tpl.ID)}
			}
			cards[tpl.ID] = tpl
		}
		for i, rec := range doc.Scenes {
			tpl, err := sceneTemplate(rec)
			if err != nil {
				return &LoadError{Source: source, Err: fmt.Errorf("scene %d: %w", i, err)}
			}
			if _, dup := scenes[tpl.ID]; dup || c.hasScene(tpl.ID) {
				return &LoadError{Source: source, Err: fmt.Errorf("%w: scene %s", ErrDuplicateID, tpl.ID)}
			}
			scenes[tpl.ID] = tpl
			refs[tpl.ID] = rec.effectsOf()
		}
	}

	maps.Copy(c.cards, cards)
	maps.Copy(c.scenes, scenes)
	maps.Copy(c.refs, refs)
	return nil
}

// Validate checks that scenes only reference cards and scenes the catalog
// knows. Positional invested-card references are always accepted.
func (c *Catalog) Validate() error {
	var errs []error
	for _, id := range slices.Sorted(maps.Keys(c.scenes)) {
		tpl := c.scenes[id]
		if cond := tpl.UnlockConditions; cond != nil {
			errs = append(errs, c.checkConditions(id, cond)...)
		}
		if ch, ok := tpl.Choice(); ok {
			for _, opt := range ch.Options {
				if opt.Conditions != nil {
					errs = append(errs, c.checkConditions(id, opt.Conditions)...)
				}
			}
		}
		for _, fx := range c.refs[id] {
			for _, ref := range fx.CardsAdd {
				if _, positional := effect.InvestedIndex(ref); positional {
					continue
				}
				if !c.hasCard(ref) {
					errs = append(errs, fmt.Errorf("%w: scene %s adds card %s", ErrDanglingRef, id, ref))
				}
			}
			for _, next := range fx.UnlockScenes {
				if !c.hasScene(next) {
					errs = append(errs, fmt.Errorf("%w: scene %s unlocks scene %s", ErrDanglingRef, id, next))
				}
			}
		}
	}
	return errors.Join(errs...)
}

func (c *Catalog) checkConditions(id string, cond *scene.UnlockConditions) []error {
	var errs []error
	for _, ref := range cond.RequiredCards {
		if !c.hasCard(ref) {
			errs = append(errs, fmt.Errorf("%w: scene %s requires card %s", ErrDanglingRef, id, ref))
		}
	}
	for _, ref := range cond.CompletedScenes {
		if !c.hasScene(ref) {
			errs = append(errs, fmt.Errorf("%w: scene %s requires scene %s", ErrDanglingRef, id, ref))
		}
	}
	return errs
}

func (c *Catalog) hasCard(id string) bool {
	_, ok := c.cards[id]
	return ok
}

func (c *Catalog) hasScene(id string) bool {
	_, ok := c.scenes[id]
	return ok
}

// CardTemplate implements effect.TemplateLookup.
func (c *Catalog) CardTemplate(id string) (card.Template, bool) {
	tpl, ok := c.cards[id]
	if !ok {
		return card.Template{}, false
	}
	return tpl.Clone(), true
}

// SceneTemplate looks up a scene by id.
func (c *Catalog) SceneTemplate(id string) (scene.Template, bool) {
	tpl, ok := c.scenes[id]
	return tpl, ok
}

// Cards lists card templates by id.
func (c *Catalog) Cards() []card.Template {
	out := make([]card.Template, 0, len(c.cards))
	for _, id := range slices.Sorted(maps.Keys(c.cards)) {
		out = append(out, c.cards[id].Clone())
	}
	return out
}

// Scenes lists scene templates by id.
func (c *Catalog) Scenes() []scene.Template {
	out := make([]scene.Template, 0, len(c.scenes))
	for _, id := range slices.Sorted(maps.Keys(c.scenes)) {
		out = append(out, c.scenes[id])
	}
	return out
}

// CardIDs lists the ids of cards of the given types, or of every card when
// no type is given.
func (c *Catalog) CardIDs(types ...card.Type) []string {
	var out []string
	for _, id := range slices.Sorted(maps.Keys(c.cards)) {
		if len(types) == 0 || slices.Contains(types, c.cards[id].Type) {
			out = append(out, id)
		}
	}
	return out
}

// Len returns the number of card and scene templates.
func (c *Catalog) Len() (cards, scenes int) { return len(c.cards), len(c.scenes) }
