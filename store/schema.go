package store

// Table names. The medicine table is replaced wholesale by every run.
const (
	medicineTable = "medicine"
	runsTable     = "ingestion_runs"
	filesTable    = "ingestion_files"
)

const createMedicineTable = `CREATE TABLE IF NOT EXISTS medicine (
	id             INTEGER PRIMARY KEY,
	substance      TEXT NOT NULL,
	name           TEXT NOT NULL,
	form           TEXT NOT NULL,
	dose           TEXT,
	contents       TEXT NOT NULL,
	product_code   TEXT NOT NULL,
	price          REAL NOT NULL,
	date           TEXT NOT NULL,
	amount         REAL NOT NULL,
	unit           TEXT NOT NULL,
	price_per_unit REAL NOT NULL,
	company        TEXT NOT NULL
)`

const createRunsTable = `CREATE TABLE IF NOT EXISTS ingestion_runs (
	run_id       TEXT PRIMARY KEY,
	started_at   TEXT NOT NULL,
	finished_at  TEXT NOT NULL,
	input_rows   INTEGER NOT NULL,
	output_rows  INTEGER NOT NULL,
	dropped_rows INTEGER NOT NULL,
	coverage     REAL NOT NULL
)`

const createFilesTable = `CREATE TABLE IF NOT EXISTS ingestion_files (
	run_id       TEXT NOT NULL REFERENCES ingestion_runs(run_id),
	path         TEXT NOT NULL,
	date         TEXT NOT NULL,
	input_rows   INTEGER NOT NULL,
	output_rows  INTEGER NOT NULL,
	dropped_rows INTEGER NOT NULL
)`

var medicineIndexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_medicine_company ON medicine(company)`,
	`CREATE INDEX IF NOT EXISTS idx_medicine_group ON medicine(substance, form, dose)`,
	`CREATE INDEX IF NOT EXISTS idx_medicine_product_code ON medicine(product_code)`,
}

const insertMedicine = `INSERT INTO medicine (
	substance, name, form, dose, contents, product_code, price, date, amount, unit, price_per_unit, company
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
