// Package sqlstore implements the catalog storage contract on SQLite.
//
// Each catalog service opens its own database file with Open and wraps the
// handle in an Adapter. The table layout comes from the kind's catalog.Schema:
// an AUTOINCREMENT integer identity followed by one TEXT column per field.
// Inserts and updates bind the field map through sqlx named parameters.
//
//	store, err := sqlstore.Open("books.db", catalog.Book)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	repo := sqlstore.NewAdapter(store, sqlstore.WithLogger(logger))
//	id, err := repo.Create(ctx, map[string]string{"title": "Dune", "author": "Frank Herbert", "description": "Sci-fi"})
//
// Store faults are returned classified as fatal and never retried.
package sqlstore
