// Package compiler provides the SIL lexer, parser, semantic analyzer and
// code generator that targets the GoCPU 16-bit assembly language.
//
// Pipeline: SIL source → Lex → Parse → Analyze → [Fold] → Generate → GoCPU assembly text
package compiler
