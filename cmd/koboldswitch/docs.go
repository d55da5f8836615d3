package main

// General API documentation for swaggo. Build with -tags swagger to serve it.
//
// @title           koboldswitch API
// @version         1.0
// @description     Start, stop and switch the model served by a local koboldcpp.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
