// Package generation defines the boundary between the application core and
// external generative AI services. It declares the interfaces the service
// layer depends on (text and image generation), the request parameter types,
// and the shared error taxonomy used to classify provider failures.
package generation
