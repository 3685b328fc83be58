package database

// schema.sql is a flattened view of the migrations for reading and for
// external SQL tools. Regenerate it after adding a migration:
//   go generate ./internal/database

//go:generate sh -c "cd ../.. && go run internal/database/tools/generate_schema.go"
