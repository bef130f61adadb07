// Command darkroom synchronizes remote images to an FTP host: it
// downloads configured sources, converts them to WebP, uploads the
// results, and manages retention of local artifacts.
package main
