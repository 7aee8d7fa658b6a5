// Copyright (c) 2025 Eventloop HQ.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package tokenmap resolves opaque participant access tokens to their owning
ledger entries.

Resolution is self-healing: records written before proactive mappings
existed are found by an indexed fallback query against the ledger, and the
mapping is backfilled on the way out. Once any token has been mapped to a
record it never resolves to a different record.

Format validation (fixed 32-hex) happens before any store access, so
malformed tokens cost nothing.
*/
package tokenmap
