// Package domain contains the to-do item entity, its status lifecycle and the
// outcome errors shared by every layer. It has no infrastructure dependencies.
package domain
