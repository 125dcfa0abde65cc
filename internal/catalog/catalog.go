// Package catalog loads the read-only program and bursary reference
// data that the admission matcher evaluates against.
//
// Catalogs are YAML files maintained by an external ingestion process;
// once loaded they are never mutated.
package catalog

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/khetha-app/khetha/pkg/types"
)

// Program is one university program's admission requirements.
type Program struct {
	Program     string                 `yaml:"program" json:"program"`
	University  string                 `yaml:"university" json:"university"`
	RequiredAPS int                    `yaml:"required_aps" json:"required_aps"`
	Subjects    []types.SubjectMinimum `yaml:"subjects,omitempty" json:"subjects,omitempty"`
	// BursaryTerms carries funding notes attached to the program
	// (e.g. "NSFAS eligible", "faculty merit award above 75%").
	BursaryTerms string `yaml:"bursary_terms,omitempty" json:"bursary_terms,omitempty"`
}

// Bursary is one funding opportunity record.
type Bursary struct {
	Name        string   `yaml:"name" json:"name"`
	Provider    string   `yaml:"provider" json:"provider"`
	Fields      []string `yaml:"fields,omitempty" json:"fields,omitempty"`
	MinAverage  float64  `yaml:"min_average,omitempty" json:"min_average,omitempty"`
	CoversFull  bool  `yaml:"covers_full_cost,omitempty" json:"covers_full_cost,omitempty"`
	Terms       string   `yaml:"terms,omitempty" json:"terms,omitempty"`
	ClosingDate string   `yaml:"closing_date,omitempty" json:"closing_date,omitempty"`
}

// Catalog is the loaded, validated reference data set.
type Catalog struct {
	Programs  []Program
	Bursaries []Bursary
}

// programsFile is the YAML document shape for the programs catalog.
type programsFile struct {
	Programs []Program `yaml:"programs"`
}

// bursariesFile is the YAML document shape for the bursaries catalog.
type bursariesFile struct {
	Bursaries []Bursary `yaml:"bursaries"`
}

// Load reads and validates the programs catalog at path, and optionally
// the bursaries catalog at bursariesPath (empty string skips it).
func Load(path, bursariesPath string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read programs file: %w", err)
	}

	var pf programsFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("catalog: parse programs file %s: %w", path, err)
	}

	c := &Catalog{Programs: pf.Programs}
	if err := c.validate(); err != nil {
		return nil, err
	}

	if bursariesPath != "" {
		bdata, err := os.ReadFile(bursariesPath)
		if err != nil {
			return nil, fmt.Errorf("catalog: read bursaries file: %w", err)
		}
		var bf bursariesFile
		if err := yaml.Unmarshal(bdata, &bf); err != nil {
			return nil, fmt.Errorf("catalog: parse bursaries file %s: %w", bursariesPath, err)
		}
		c.Bursaries = bf.Bursaries
	}

	return c, nil
}

// validate rejects records a matcher could not evaluate deterministically.
func (c *Catalog) validate() error {
	for i, p := range c.Programs {
		if strings.TrimSpace(p.Program) == "" {
			return fmt.Errorf("catalog: program %d has an empty name", i)
		}
		if strings.TrimSpace(p.University) == "" {
			return fmt.Errorf("catalog: program %q has an empty university", p.Program)
		}
		if p.RequiredAPS < 0 {
			return fmt.Errorf("catalog: program %q has negative required APS %d", p.Program, p.RequiredAPS)
		}
		for _, sm := range p.Subjects {
			if sm.MinPercentage < 0 || sm.MinPercentage > 100 {
				return fmt.Errorf("catalog: program %q subject %q minimum %v outside [0,100]",
					p.Program, sm.Subject, sm.MinPercentage)
			}
		}
	}
	return nil
}

// BursariesForInterests returns bursaries whose field list overlaps the
// given interest tags. Bursaries with no field restriction always match.
func (c *Catalog) BursariesForInterests(interests []string) []Bursary {
	if len(c.Bursaries) == 0 {
		return nil
	}
	tagSet := make(map[string]bool, len(interests))
	for _, t := range interests {
		tagSet[strings.ToLower(t)] = true
	}

	var matched []Bursary
	for _, b := range c.Bursaries {
		if len(b.Fields) == 0 {
			matched = append(matched, b)
			continue
		}
		for _, f := range b.Fields {
			if tagSet[strings.ToLower(f)] {
				matched = append(matched, b)
				break
			}
		}
	}
	return matched
}

// DefaultPrograms returns a small built-in catalog used when no
// programs file is configured, covering common faculties across a few
// universities. Production deployments load the full file instead.
func DefaultPrograms() []Program {
	return []Program{
		{
			Program: "BSc Computer Science", University: "University of Cape Town",
			RequiredAPS: 34,
			Subjects: []types.SubjectMinimum{
				{Subject: "Mathematics", MinPercentage: 70},
			},
			BursaryTerms: "NSFAS eligible; faculty merit award above 75% average",
		},
		{
			Program: "BSc Computer Science", University: "University of Pretoria",
			RequiredAPS: 30,
			Subjects: []types.SubjectMinimum{
				{Subject: "Mathematics", MinPercentage: 60},
			},
			BursaryTerms: "NSFAS eligible",
		},
		{
			Program: "BEng Electrical Engineering", University: "University of the Witwatersrand",
			RequiredAPS: 36,
			Subjects: []types.SubjectMinimum{
				{Subject: "Mathematics", MinPercentage: 70},
				{Subject: "Physical Sciences", MinPercentage: 65},
			},
		},
		{
			Program: "BCom Accounting", University: "Stellenbosch University",
			RequiredAPS: 28,
			Subjects: []types.SubjectMinimum{
				{Subject: "Mathematics", MinPercentage: 60},
			},
		},
		{
			Program: "Bachelor of Nursing", University: "University of Johannesburg",
			RequiredAPS: 26,
			Subjects: []types.SubjectMinimum{
				{Subject: "Life Sciences", MinPercentage: 50},
			},
			BursaryTerms: "Provincial health department bursaries available",
		},
		{
			Program: "BA Law", University: "University of the Western Cape",
			RequiredAPS: 27,
			Subjects: []types.SubjectMinimum{
				{Subject: "English", MinPercentage: 60},
			},
		},
		{
			Program: "Diploma in Information Technology", University: "Cape Peninsula University of Technology",
			RequiredAPS: 22,
			Subjects: []types.SubjectMinimum{
				{Subject: "Mathematics", MinPercentage: 50},
			},
			BursaryTerms: "NSFAS eligible",
		},
	}
}
