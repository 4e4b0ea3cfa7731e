// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server provides the promptforge HTTP API.
//
// # Endpoints
//
//   - GET    /api/health           - Health check
//   - POST   /api/auth/register    - Create an account and start a session
//   - POST   /api/auth/login       - Start a session
//   - GET    /api/auth/me          - Current user
//   - POST   /api/auth/logout      - End the session
//   - POST   /api/generate-prompt  - Render and store a prompt
//   - GET    /api/prompts          - List the caller's prompts
//   - POST   /api/prompts          - Save a prompt
//   - GET    /api/prompts/{id}     - Fetch one prompt
//   - PUT    /api/prompts/{id}     - Replace a prompt's text
//   - DELETE /api/prompts/{id}     - Delete a prompt
//
// Every response is a JSON envelope with a "success" flag and, on failure, an
// "error" message. Sessions are HS256 tokens carried in the
// promptforge_session cookie or an Authorization: Bearer header.
//
// # Middleware
//
//   - Request IDs (X-Request-ID)
//   - Panic recovery
//   - Security headers
//   - Structured request logging
//   - CORS with credentials for configured origins
//   - Per-IP token-bucket rate limiting
package server
