package consistency_test

import (
	"testing"

	"gorm.io/gorm"

	"github.com/sahilchouksey/catalog-api/services/consistency"
	"github.com/sahilchouksey/catalog-api/utils/testdb"
)

type fixture struct {
	db      *gorm.DB
	engine  *consistency.Engine
	catalog *testdb.Catalog
}

func newFixture(t *testing.T, opts ...consistency.Option) *fixture {
	t.Helper()
	db := testdb.Open(t)
	return &fixture{
		db:      db,
		engine:  consistency.NewEngine(db, opts...),
		catalog: testdb.NewCatalog(t, db),
	}
}
