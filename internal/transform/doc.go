// Package transform converts raw downloads into web-ready WebP
// derivatives. Each image is flattened onto a white background, then
// optionally cropped, upscaled for processing headroom, enhanced, and
// finally fitted to its target dimensions before encoding. Individual
// enhancement steps that fail are logged and skipped so one bad
// setting never loses the whole image.
package transform
