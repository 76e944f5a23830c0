package main

// General API documentation for swaggo. Regenerate with `swag init -g cmd/chatd/docs.go`.
//
// @title           chatd API
// @version         1.0
// @description     HTTP API for local LLM model lifecycle and chat.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
