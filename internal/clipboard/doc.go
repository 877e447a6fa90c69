// Package clipboard moves PNG data to and from the system clipboard.
package clipboard
