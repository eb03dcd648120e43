package catalog

import (
	"testing"

	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqlsim/sqlsim/internal/sqlerr"
	"github.com/sqlsim/sqlsim/internal/sqltype"
)

func parseStmt(t *testing.T, sql string) ast.StmtNode {
	t.Helper()
	p := parser.New()
	stmts, _, err := p.Parse(sql, "", "")
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	return stmts[0]
}

func mustCreate(t *testing.T, sim *Simulator, sql string) {
	t.Helper()
	err := sim.CreateTable(parseStmt(t, sql).(*ast.CreateTableStmt))
	require.NoError(t, err)
}

func TestCreateTableColumnsAndTypes(t *testing.T) {
	sim := NewSimulator(sqltype.Generic)
	mustCreate(t, sim, `CREATE TABLE person (
		id INT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		email TEXT,
		age INT DEFAULT 0
	)`)

	table, ok := sim.Table("person")
	require.True(t, ok)

	idCol, ok := table.Column("id")
	require.True(t, ok)
	assert.True(t, idCol.Type.Equal(sqltype.Integer))
	assert.False(t, idCol.Nullable)

	nameCol, ok := table.Column("name")
	require.True(t, ok)
	assert.True(t, nameCol.Type.Equal(sqltype.Text))
	assert.False(t, nameCol.Nullable)

	emailCol, ok := table.Column("email")
	require.True(t, ok)
	assert.True(t, emailCol.Nullable)

	ageCol, ok := table.Column("age")
	require.True(t, ok)
	assert.True(t, ageCol.Default)

	assert.Equal(t, []string{"id", "name", "email", "age"}, table.Columns())
	assert.True(t, table.IsUniqueKey([]string{"id"}))
}

func TestCreateTableDuplicateColumnRejected(t *testing.T) {
	sim := NewSimulator(sqltype.Generic)
	err := sim.CreateTable(parseStmt(t, `CREATE TABLE t (id INT, id INT)`).(*ast.CreateTableStmt))
	require.Error(t, err)
}

func TestCreateTableDefaultTypeMismatchRejected(t *testing.T) {
	sim := NewSimulator(sqltype.Generic)
	err := sim.CreateTable(parseStmt(t, `CREATE TABLE t (id INT DEFAULT 'not-a-number')`).(*ast.CreateTableStmt))
	require.Error(t, err)
}

func TestCreateTableIntegerDefaultAdaptsToFloatColumn(t *testing.T) {
	sim := NewSimulator(sqltype.Generic)
	mustCreate(t, sim, `CREATE TABLE t (weight REAL DEFAULT 0)`)

	table, ok := sim.Table("t")
	require.True(t, ok)
	weightCol, ok := table.Column("weight")
	require.True(t, ok)
	assert.True(t, weightCol.Default)
}

func TestForeignKeyValidation(t *testing.T) {
	sim := NewSimulator(sqltype.Generic)
	mustCreate(t, sim, `CREATE TABLE parent (id INT PRIMARY KEY)`)
	mustCreate(t, sim, `CREATE TABLE child (
		id INT PRIMARY KEY,
		parent_id INT REFERENCES parent(id)
	)`)

	table, ok := sim.Table("child")
	require.True(t, ok)
	constraints := table.Constraints([]string{"parent_id"})
	require.Len(t, constraints, 1)
	assert.Equal(t, KindForeignKey, constraints[0].Kind)
	assert.Equal(t, "parent", constraints[0].RefTable)
}

func TestForeignKeyAgainstUnknownTableRejected(t *testing.T) {
	sim := NewSimulator(sqltype.Generic)
	err := sim.CreateTable(parseStmt(t, `CREATE TABLE child (
		id INT PRIMARY KEY,
		parent_id INT REFERENCES missing(id)
	)`).(*ast.CreateTableStmt))
	require.Error(t, err)
}

func TestForeignKeyAgainstNonUniqueColumnRejected(t *testing.T) {
	sim := NewSimulator(sqltype.Generic)
	mustCreate(t, sim, `CREATE TABLE parent (id INT, name TEXT)`)
	err := sim.CreateTable(parseStmt(t, `CREATE TABLE child (
		id INT PRIMARY KEY,
		parent_id INT REFERENCES parent(id)
	)`).(*ast.CreateTableStmt))
	require.Error(t, err, "parent.id has no PRIMARY KEY/UNIQUE constraint")
}

func TestForeignKeySetNullOnNotNullColumnRejected(t *testing.T) {
	sim := NewSimulator(sqltype.Generic)
	mustCreate(t, sim, `CREATE TABLE parent (id INT PRIMARY KEY)`)
	err := sim.CreateTable(parseStmt(t, `CREATE TABLE child (
		id INT PRIMARY KEY,
		parent_id INT NOT NULL REFERENCES parent(id) ON DELETE SET NULL
	)`).(*ast.CreateTableStmt))
	require.Error(t, err)
	var sqlErr *sqlerr.Error
	require.ErrorAs(t, err, &sqlErr)
	assert.Equal(t, sqlerr.NullOnNotNullColumn, sqlErr.Kind)
}

func TestForeignKeySetNullOnNullableColumnAccepted(t *testing.T) {
	sim := NewSimulator(sqltype.Generic)
	mustCreate(t, sim, `CREATE TABLE parent (id INT PRIMARY KEY)`)
	require.NoError(t, sim.CreateTable(parseStmt(t, `CREATE TABLE child (
		id INT PRIMARY KEY,
		parent_id INT REFERENCES parent(id) ON DELETE SET NULL
	)`).(*ast.CreateTableStmt)))
}

func TestForeignKeySetDefaultOnColumnWithoutDefaultRejected(t *testing.T) {
	sim := NewSimulator(sqltype.Generic)
	mustCreate(t, sim, `CREATE TABLE parent (id INT PRIMARY KEY)`)
	err := sim.CreateTable(parseStmt(t, `CREATE TABLE child (
		id INT PRIMARY KEY,
		parent_id INT REFERENCES parent(id) ON UPDATE SET DEFAULT
	)`).(*ast.CreateTableStmt))
	require.Error(t, err)
	var sqlErr *sqlerr.Error
	require.ErrorAs(t, err, &sqlErr)
	assert.Equal(t, sqlerr.DefaultOnNotDefaultColumn, sqlErr.Kind)
}

func TestForeignKeySetDefaultOnColumnWithDefaultAccepted(t *testing.T) {
	sim := NewSimulator(sqltype.Generic)
	mustCreate(t, sim, `CREATE TABLE parent (id INT PRIMARY KEY)`)
	require.NoError(t, sim.CreateTable(parseStmt(t, `CREATE TABLE child (
		id INT PRIMARY KEY,
		parent_id INT DEFAULT 0 REFERENCES parent(id) ON UPDATE SET DEFAULT
	)`).(*ast.CreateTableStmt)))
}

func TestForeignKeyTableLevelSetNullOnNotNullColumnRejected(t *testing.T) {
	sim := NewSimulator(sqltype.Generic)
	mustCreate(t, sim, `CREATE TABLE parent (id INT PRIMARY KEY)`)
	err := sim.CreateTable(parseStmt(t, `CREATE TABLE child (
		id INT PRIMARY KEY,
		parent_id INT NOT NULL,
		FOREIGN KEY (parent_id) REFERENCES parent(id) ON DELETE SET NULL
	)`).(*ast.CreateTableStmt))
	require.Error(t, err)
	var sqlErr *sqlerr.Error
	require.ErrorAs(t, err, &sqlErr)
	assert.Equal(t, sqlerr.NullOnNotNullColumn, sqlErr.Kind)
}

func TestDropTableBlockedByForeignKeyReference(t *testing.T) {
	sim := NewSimulator(sqltype.Generic)
	mustCreate(t, sim, `CREATE TABLE parent (id INT PRIMARY KEY)`)
	mustCreate(t, sim, `CREATE TABLE child (id INT PRIMARY KEY, parent_id INT REFERENCES parent(id))`)

	err := sim.DropTable(parseStmt(t, `DROP TABLE parent`).(*ast.DropTableStmt))
	require.Error(t, err)

	assert.NoError(t, sim.DropTable(parseStmt(t, `DROP TABLE child`).(*ast.DropTableStmt)))
	assert.NoError(t, sim.DropTable(parseStmt(t, `DROP TABLE parent`).(*ast.DropTableStmt)))
}

func TestDropTableUnknownTable(t *testing.T) {
	sim := NewSimulator(sqltype.Generic)
	err := sim.DropTable(parseStmt(t, `DROP TABLE missing`).(*ast.DropTableStmt))
	require.Error(t, err)
}
