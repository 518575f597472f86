// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package events publishes post-commit notifications (ballot cast, code
// used, election closed) to RabbitMQ. Without a broker the server runs with
// the Nop publisher.
package events
