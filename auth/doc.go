// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides credential and token utilities.

# Admin Key

Admin endpoints present the deployment's admin key in X-Admin-Key:

	err := auth.ValidateAdminKey(r.Header.Get("X-Admin-Key"), cfg.AdminKey)

# Voter Codes

Delegate codes are two letters and four digits ("AB1234"); officer-group
codes are opaque 10-character tokens from an unambiguous alphabet:

	code, err := auth.GenerateDelegateCode()
	code, err := auth.GenerateOfficerCode()

Codes are case-insensitive. NormalizeCode upper-cases and trims before lookup.

# Voter Sessions

Redeeming a code issues an HS256 JWT whose subject is the code id:

	tok, err := auth.NewSessionToken(secret, codeID, 30*time.Minute)
	codeID, err := auth.ParseSessionToken(secret, tok.Token)

# ID Generation

Random hex IDs for database records:

	id, err := auth.GenerateID(16)  // 32 hex characters
*/
package auth
