// Package invoicerepo serves single invoices and invoice pages to handlers.
//
// # Single invoices
//
// GetByID composes the protection layers in this order:
//
//	dedup → cache → retry → fetch → assemble (items joined concurrently) → transform
//
// Concurrent callers for the same id attach to one in-flight load. A
// successful load is cached for 60 seconds under the "invoice" tag, so
//
//	repo.InvalidateTag(ctx, "invoice")
//
// forces the next read of any invoice to reload. Failures are never cached.
// Returned invoices are copies; callers may modify them freely.
//
// # Pages
//
// List and Search go straight to the query engine. Pages are not cached,
// since cursors are only meaningful for a short time.
//
// # Extra tags
//
// Callers can group cache entries further with WithCacheTags:
//
//	ctx = invoicerepo.WithCacheTags(ctx, "client:acme")
//	inv, err := repo.GetByID(ctx, id)
//	...
//	_ = repo.InvalidateTag(ctx, "client:acme")
package invoicerepo
