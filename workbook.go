package xlstream

import (
	"encoding/xml"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strconv"
	"strings"
)

// SheetDescriptor identifies one sheet of the workbook.
type SheetDescriptor struct {
	ID    int    // logical sheetId
	Name  string // display name
	Order int    // 1-based storage order, selects xl/worksheets/sheet{Order}.xml
	// Target is the relationship target of the sheet, when the workbook
	// relationships were available.
	Target string
}

// Entry is the archive entry holding the sheet markup.
func (s SheetDescriptor) Entry() string {
	return sheetEntry(s.Order)
}

func sheetEntry(order int) string {
	return "xl/worksheets/sheet" + strconv.Itoa(order) + ".xml"
}

// Catalog is the sheet registry loaded from xl/workbook.xml.
type Catalog struct {
	sheets []SheetDescriptor
}

func (c *Catalog) Sheets() []SheetDescriptor {
	out := make([]SheetDescriptor, len(c.sheets))
	copy(out, c.sheets)
	return out
}

func (c *Catalog) ByName(name string) (SheetDescriptor, error) {
	for _, s := range c.sheets {
		if s.Name == name {
			return s, nil
		}
	}
	return SheetDescriptor{}, fmt.Errorf("%w: sheet %q", ErrNotFound, name)
}

func (c *Catalog) ByOrder(order int) (SheetDescriptor, bool) {
	if order < 1 || order > len(c.sheets) {
		return SheetDescriptor{}, false
	}
	return c.sheets[order-1], true
}

func loadCatalog(fsys fs.FS) (*Catalog, error) {
	rels, err := loadRelationships(fsys)
	if err != nil {
		return nil, err
	}
	rc, found, err := openPart(fsys, entryWorkbook)
	if err != nil || !found {
		return &Catalog{}, err
	}
	defer rc.Close()

	catalog := &Catalog{}
	dec := newXMLDecoder(rc)
	inSheets := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return catalog, nil
		}
		if err != nil {
			return nil, malformed("%s: %v", entryWorkbook, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case t.Name.Local == "sheets":
				inSheets = true
			case t.Name.Local == "sheet" && inSheets:
				raw := attr(t, "sheetId")
				id, err := strconv.Atoi(raw)
				if err != nil {
					return nil, malformed("%s: sheet %q has sheetId %q", entryWorkbook, attr(t, "name"), raw)
				}
				catalog.sheets = append(catalog.sheets, SheetDescriptor{
					ID:     id,
					Name:   attr(t, "name"),
					Order:  len(catalog.sheets) + 1,
					Target: rels[attr(t, "id")],
				})
			}
		case xml.EndElement:
			if t.Name.Local == "sheets" {
				inSheets = false
			}
		}
	}
}

// loadRelationships maps relationship ids of the workbook to archive paths.
func loadRelationships(fsys fs.FS) (map[string]string, error) {
	rels := make(map[string]string)
	rc, found, err := openPart(fsys, entryWorkbookRels)
	if err != nil || !found {
		return rels, err
	}
	defer rc.Close()

	dec := newXMLDecoder(rc)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return rels, nil
		}
		if err != nil {
			return nil, malformed("%s: %v", entryWorkbookRels, err)
		}
		if t, ok := tok.(xml.StartElement); ok && t.Name.Local == "Relationship" {
			if target := attr(t, "Target"); target != "" {
				rels[attr(t, "Id")] = resolveTarget(target)
			}
		}
	}
}

// resolveTarget turns a relationship target into an archive path. Targets are
// relative to xl/ unless absolute.
func resolveTarget(target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(path.Clean(target), "/")
	}
	return path.Join("xl", target)
}
