package pimstats

import (
	"database/sql"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/fatih/structs"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// DataRecorder is a backend that can record and store flat data records.
type DataRecorder interface {
	// CreateTable creates a new table shaped like the sample entry.
	CreateTable(tableName string, sampleEntry any)

	// InsertData buffers one entry of the table's type.
	InsertData(tableName string, entry any)

	// Flush writes all the buffered entries into the database.
	Flush()
}

// NewRecorder creates a SQLite-backed DataRecorder. An empty path picks a
// generated file name.
func NewRecorder(path string) DataRecorder {
	w := &sqliteWriter{
		dbName:    path,
		batchSize: 100000,
		tables:    make(map[string]*recorderTable),
	}

	w.init()

	atexit.Register(w.Flush)

	return w
}

type recorderTable struct {
	structType reflect.Type
	entries    []any
}

type sqliteWriter struct {
	*sql.DB

	dbName     string
	tables     map[string]*recorderTable
	batchSize  int
	entryCount int
}

func (w *sqliteWriter) init() {
	if w.dbName == "" {
		w.dbName = "pimsim_recording_" + xid.New().String()
	}

	filename := w.dbName + ".sqlite3"
	_, err := os.Stat(filename)
	if err == nil {
		panic(fmt.Errorf("file %s already exists", filename))
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		panic(err)
	}

	w.DB = db
}

func (w *sqliteWriter) CreateTable(tableName string, sampleEntry any) {
	w.mustHaveFlatFields(sampleEntry)

	fields := strings.Join(structs.Names(sampleEntry), ", \n\t")
	w.mustExecute(`CREATE TABLE ` + tableName +
		` (` + "\n\t" + fields + "\n" + `);`)

	w.tables[tableName] = &recorderTable{
		structType: reflect.TypeOf(sampleEntry),
	}
}

func (w *sqliteWriter) InsertData(tableName string, entry any) {
	table, exists := w.tables[tableName]
	if !exists {
		panic(fmt.Errorf("table %s does not exist", tableName))
	}

	table.entries = append(table.entries, entry)

	w.entryCount++
	if w.entryCount >= w.batchSize {
		w.Flush()
	}
}

func (w *sqliteWriter) Flush() {
	if w.entryCount == 0 {
		return
	}

	w.mustExecute("BEGIN TRANSACTION")
	defer w.mustExecute("COMMIT TRANSACTION")

	for tableName, table := range w.tables {
		if len(table.entries) == 0 {
			continue
		}

		stmt := w.prepareInsert(tableName, table.entries[0])

		for _, entry := range table.entries {
			v := []any{}
			value := reflect.ValueOf(entry)
			for i := 0; i < value.NumField(); i++ {
				v = append(v, value.Field(i).Interface())
			}

			_, err := stmt.Exec(v...)
			if err != nil {
				panic(err)
			}
		}

		table.entries = nil
		stmt.Close()
	}

	w.entryCount = 0
}

func (w *sqliteWriter) prepareInsert(
	tableName string,
	sampleEntry any,
) *sql.Stmt {
	n := structs.Names(sampleEntry)
	for i := range n {
		n[i] = "?"
	}

	stmt, err := w.Prepare("INSERT INTO " + tableName +
		" VALUES (" + strings.Join(n, ", ") + ")")
	if err != nil {
		panic(err)
	}

	return stmt
}

func (w *sqliteWriter) mustExecute(query string) sql.Result {
	res, err := w.Exec(query)
	if err != nil {
		fmt.Printf("Failed to execute: %s\n", query)
		panic(err)
	}

	return res
}

func (w *sqliteWriter) mustHaveFlatFields(entry any) {
	types := reflect.TypeOf(entry)

	for i := 0; i < types.NumField(); i++ {
		switch types.Field(i).Type.Kind() {
		case reflect.Bool,
			reflect.Int, reflect.Int8, reflect.Int16,
			reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16,
			reflect.Uint32, reflect.Uint64,
			reflect.Float32, reflect.Float64,
			reflect.String:
		default:
			panic(fmt.Errorf("field %s is not a flat type",
				types.Field(i).Name))
		}
	}
}
