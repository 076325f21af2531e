// Package compose turns a content reference into final page bytes.
//
// A reference that names a regular file under the content root is parsed for
// front matter; anything else is literal text. Files without front matter are
// returned unchanged. Otherwise the merged preferences drive composition:
//
//	page.contents                    concatenate the listed references
//	page.scripts                     pipe the body through scripts (when there are no contents)
//	once_page_is_compiled.scripts    second pipeline pass
//	once_page_is_compiled.prepends   blocks placed before the body
//	once_page_is_compiled.postpends  blocks placed after the body
//
// Nested references are compiled with empty preferences. A reference that
// re-enters its own chain fails with ErrContentCycle.
package compose
