package main

// General API documentation for swaggo. Run `make swagger-gen` to generate docs.
//
// @title           sessiond API
// @version         1.0
// @description     HTTP API for on-device LLM generation sessions.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
