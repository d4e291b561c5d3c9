// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package rest builds the HTTP surfaces of the drive-thru services from
// typed handlers.
//
// A [Handler] maps a request value to a response value. Body codecs are
// layered around it:
//
//	rest.Operation(
//		http.MethodPost,
//		rest.BasePath("/process-order"),
//		rest.HandleJson(h),
//	)
//
// Every operation is routed with chi, traced, and described in the OpenAPI
// document served at GET /openapi.json. Errors returned from handlers are
// written by an [ErrorHandler], by default as RFC 7807 problem details.
package rest
