package models

import (
	"fmt"
	"sort"
	"sync"

	"gorm.io/gen"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

/*
Developer tooling for the relational store.

GENERATE_MODELS=true runs GenerateModels: it migrates the blog tables, prints a column
mismatch report and writes typed query helpers to ./generated.

The column mismatch report lists columns that exist in the database but have no field in the
Go model, which usually means a hand-written migration drifted from the structs:

	=== COLUMN MISMATCH REPORT ===
	--- Table: blog_posts ---
	Found 1 columns not accounted for in model:
	  - legacy_length
	=== SUMMARY ===
	Total mismatched columns across all tables: 1
*/

// TableModels maps each relational table to the struct stored in it
func TableModels() map[string]interface{} {
	return map[string]interface{}{
		"blog_posts": &BlogPost{},
		"blog_tags":  &BlogTag{},
	}
}

// GenerateModels migrates the blog tables and generates query helpers under outPath
func GenerateModels(db *gorm.DB, outPath string) error {
	if err := db.Exec("SELECT 1").Error; err != nil {
		return fmt.Errorf("error connecting to database: %w", err)
	}

	if err := db.Session(&gorm.Session{SkipDefaultTransaction: true}).AutoMigrate(&BlogPost{}, &BlogTag{}); err != nil {
		return fmt.Errorf("error during models migration: %w", err)
	}

	report, err := ColumnMismatchReport(db)
	if err != nil {
		return err
	}
	fmt.Print(report.String())

	g := gen.NewGenerator(gen.Config{
		OutPath:           outPath,
		Mode:              gen.WithDefaultQuery | gen.WithQueryInterface,
		FieldNullable:     true,
		FieldCoverable:    true,
		FieldWithIndexTag: true,
		FieldWithTypeTag:  true,
	})
	g.UseDB(db)
	g.ApplyBasic(BlogPost{}, BlogTag{})
	g.Execute()
	return nil
}

// ColumnMismatches lists, per table, database columns with no matching model field
type ColumnMismatches struct {
	Tables  map[string][]string
	Missing []string // tables not created yet
}

// Total is the number of unaccounted columns across all tables
func (r ColumnMismatches) Total() int {
	n := 0
	for _, cols := range r.Tables {
		n += len(cols)
	}
	return n
}

func (r ColumnMismatches) String() string {
	out := "=== COLUMN MISMATCH REPORT ===\n"
	tables := make([]string, 0, len(r.Tables))
	for t := range r.Tables {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	for _, t := range tables {
		out += fmt.Sprintf("--- Table: %s ---\n", t)
		if len(r.Tables[t]) == 0 {
			out += "All columns are accounted for in the model.\n"
			continue
		}
		out += fmt.Sprintf("Found %d columns not accounted for in model:\n", len(r.Tables[t]))
		for _, col := range r.Tables[t] {
			out += fmt.Sprintf("  - %s\n", col)
		}
	}
	for _, t := range r.Missing {
		out += fmt.Sprintf("--- Table: %s ---\nTable does not exist yet (will be created during migration)\n", t)
	}
	out += fmt.Sprintf("=== SUMMARY ===\nTotal mismatched columns across all tables: %d\n", r.Total())
	return out
}

// ColumnMismatchReport compares the live schema with the Go models without migrating
func ColumnMismatchReport(db *gorm.DB) (ColumnMismatches, error) {
	report := ColumnMismatches{Tables: map[string][]string{}}
	cache := &sync.Map{}

	for table, model := range TableModels() {
		if !db.Migrator().HasTable(table) {
			report.Missing = append(report.Missing, table)
			continue
		}
		columnTypes, err := db.Migrator().ColumnTypes(model)
		if err != nil {
			return report, fmt.Errorf("error querying columns for table %s: %w", table, err)
		}
		fields, err := modelColumns(model, cache, db.NamingStrategy)
		if err != nil {
			return report, err
		}

		var mismatches []string
		for _, ct := range columnTypes {
			if _, ok := fields[ct.Name()]; !ok {
				mismatches = append(mismatches, ct.Name())
			}
		}
		sort.Strings(mismatches)
		report.Tables[table] = mismatches
	}
	sort.Strings(report.Missing)
	return report, nil
}

// modelColumns resolves the column names gorm maps a model to, embedded structs included
func modelColumns(model interface{}, cache *sync.Map, namer schema.Namer) (map[string]struct{}, error) {
	s, err := schema.Parse(model, cache, namer)
	if err != nil {
		return nil, fmt.Errorf("error parsing model %T: %w", model, err)
	}
	cols := make(map[string]struct{}, len(s.DBNames))
	for _, name := range s.DBNames {
		cols[name] = struct{}{}
	}
	return cols, nil
}
