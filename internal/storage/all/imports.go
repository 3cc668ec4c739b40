// Package all registers every built-in storage backend with the storage
// factory. Import it for side effects:
//
//	import _ "csvclean/internal/storage/all"
//
// Kinds made available: "postgres", "sqlite", "mysql", "mssql".
package all

import (
	_ "csvclean/internal/storage/postgres"
	_ "csvclean/internal/storage/sqlstore"
)
