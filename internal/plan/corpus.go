// Package plan builds, persists and serves the 365-day reading plan.
package plan

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Book is one canonical book and its chapter count.
type Book struct {
	Name     string `yaml:"name" json:"name"`
	Chapters int    `yaml:"chapters" json:"chapters"`
}

// Corpus groups the books of each section in reading order.
// Each section is flattened and consumed independently.
type Corpus struct {
	OldTestament  []Book `yaml:"old_testament"`
	NewTestament  []Book `yaml:"new_testament"`
	PsalmOrGospel []Book `yaml:"psalm_or_gospel"`
}

// DefaultCorpus returns the embedded canonical book table.
func DefaultCorpus() Corpus {
	return Corpus{
		OldTestament: []Book{
			{"Genesis", 50}, {"Exodus", 40}, {"Leviticus", 27}, {"Numbers", 36},
			{"Deuteronomy", 34}, {"Joshua", 24}, {"Judges", 21}, {"Ruth", 4},
			{"1 Samuel", 31}, {"2 Samuel", 24}, {"1 Kings", 22}, {"2 Kings", 25},
			{"1 Chronicles", 29}, {"2 Chronicles", 36}, {"Ezra", 10}, {"Nehemiah", 13},
			{"Esther", 10}, {"Job", 42}, {"Isaiah", 66}, {"Jeremiah", 52},
			{"Lamentations", 5}, {"Ezekiel", 48}, {"Daniel", 12}, {"Hosea", 14},
			{"Joel", 3}, {"Amos", 9}, {"Obadiah", 1}, {"Jonah", 4}, {"Micah", 7},
			{"Nahum", 3}, {"Habakkuk", 3}, {"Zephaniah", 3}, {"Haggai", 2},
			{"Zechariah", 14}, {"Malachi", 4},
		},
		NewTestament: []Book{
			{"Matthew", 28}, {"Mark", 16}, {"Luke", 24}, {"John", 21},
			{"Acts", 28}, {"Romans", 16}, {"1 Corinthians", 16}, {"2 Corinthians", 13},
			{"Galatians", 6}, {"Ephesians", 6}, {"Philippians", 4}, {"Colossians", 4},
			{"1 Thessalonians", 5}, {"2 Thessalonians", 3}, {"1 Timothy", 6},
			{"2 Timothy", 4}, {"Titus", 3}, {"Philemon", 1}, {"Hebrews", 13},
			{"James", 5}, {"1 Peter", 5}, {"2 Peter", 3}, {"1 John", 5}, {"2 John", 1},
			{"3 John", 1}, {"Jude", 1}, {"Revelation", 22},
		},
		PsalmOrGospel: []Book{
			{"Psalms", 150}, {"Proverbs", 31}, {"Ecclesiastes", 12}, {"Song of Solomon", 8},
		},
	}
}

// LoadCorpus reads a YAML book table, used to regenerate the plan
// when the canonical list changes.
func LoadCorpus(r io.Reader) (Corpus, error) {
	var c Corpus
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return Corpus{}, fmt.Errorf("decode corpus: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Corpus{}, err
	}
	return c, nil
}

// Validate rejects unnamed books and non-positive chapter counts.
func (c Corpus) Validate() error {
	var errs []error
	check := func(section string, books []Book) {
		for i, b := range books {
			if b.Name == "" {
				errs = append(errs, fmt.Errorf("%s[%d]: name is required", section, i))
			}
			if b.Chapters < 1 {
				errs = append(errs, fmt.Errorf("%s[%d] %q: chapters must be positive, got %d", section, i, b.Name, b.Chapters))
			}
		}
	}
	check("old_testament", c.OldTestament)
	check("new_testament", c.NewTestament)
	check("psalm_or_gospel", c.PsalmOrGospel)
	return errors.Join(errs...)
}
