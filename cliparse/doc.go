// Copyright (c) 2025 Eventloop HQ.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles configuration parsing for the Turnstile server.

Configuration comes from CLI flags with environment-variable fallback; a
.env file is loaded first when present (godotenv). Secrets should be passed
via environment in production.

Required settings:

  - DATABASE_URL (-d): PostgreSQL or SQLite connection string
  - ADMIN_KEY_SALT (--admin-salt): secret for contest admin key HMAC
  - PHONE_HASH_SALT (--phone-salt): secret for phone identity hashing

Optional settings:

  - PORT (-p): server port (default: 3380)
  - DATABASE_TYPE (-t): sqlite or postgres (default: postgres)
  - RATE_LIMIT / RATE_WINDOW: submission rate-limit policy (default: 10/min)
  - REDIS_ADDR (--redis): shared rate-limit store for multi-instance runs
*/
package cliparse
