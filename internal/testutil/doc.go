// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helper functions for tests that handle errors
// appropriately, reducing boilerplate and ensuring consistent error handling.
//
// Common helpers build fake agent externals directories (NewExternals),
// create files and directories (MustMkdirAll, MustWriteFile) and limit
// concurrent container operations (ContainerSemaphore).
package testutil
