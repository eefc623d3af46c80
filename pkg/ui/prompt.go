package ui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// DefaultPromptAttempts bounds how often a question is repeated on bad input
const DefaultPromptAttempts = 5

// ErrNoAnswer is returned when the input ends or every attempt was invalid
var ErrNoAnswer = errors.New("no valid answer given")

// Prompter reads answers to interactive questions line by line
type Prompter struct {
	in       *bufio.Reader
	out      io.Writer
	attempts int
}

// NewPrompter creates a prompter reading from in and writing questions to out
func NewPrompter(in io.Reader, out io.Writer, attempts int) *Prompter {
	if attempts <= 0 {
		attempts = DefaultPromptAttempts
	}
	return &Prompter{
		in:       bufio.NewReader(in),
		out:      out,
		attempts: attempts,
	}
}

// Println writes a line to the prompter's output
func (p *Prompter) Println(a ...interface{}) {
	fmt.Fprintln(p.out, a...)
}

// ReadLine prints the question and returns the trimmed answer.
// io.EOF is returned only when nothing was read.
func (p *Prompter) ReadLine(question string) (string, error) {
	if question != "" {
		fmt.Fprint(p.out, question)
	}
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Confirm asks a y/n question until a valid answer is given. After the
// configured number of invalid answers, or at end of input, the answer is no.
func (p *Prompter) Confirm(question string) (bool, error) {
	for i := 0; i < p.attempts; i++ {
		answer, err := p.ReadLine(question)
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		if err != nil {
			return false, err
		}

		switch strings.ToLower(answer) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		fmt.Fprintln(p.out, "Invalid Input")
	}
	return false, nil
}

// ChooseNumber asks for an integer in [0, n) until a valid one is given
func (p *Prompter) ChooseNumber(question string, n int) (int, error) {
	for i := 0; i < p.attempts; i++ {
		answer, err := p.ReadLine(question)
		if errors.Is(err, io.EOF) {
			return 0, ErrNoAnswer
		}
		if err != nil {
			return 0, err
		}

		if choice, convErr := strconv.Atoi(answer); convErr == nil && choice >= 0 && choice < n {
			return choice, nil
		}
		fmt.Fprintln(p.out, "Invalid Input")
	}
	return 0, ErrNoAnswer
}
