// File: internal/accounts/menu.go
package accounts

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Menu drives the interactive account management loop on a terminal.
type Menu struct {
	store *Store
	in    *bufio.Reader
	out   io.Writer
}

// NewMenu builds the menu around a store, reading from in and printing to out.
func NewMenu(store *Store, in io.Reader, out io.Writer) *Menu {
	return &Menu{store: store, in: bufio.NewReader(in), out: out}
}

// Run shows the account menu until the user backs out. It returns an error
// only when the store itself fails; invalid input is reported and re-prompted.
func (m *Menu) Run() error {
	for {
		m.printAccounts()
		fmt.Fprintln(m.out, "\n[1] Add account  [2] Switch  [3] Edit  [4] Delete  [0] Back")
		choice := m.prompt("Select: ")

		var err error
		switch choice {
		case "1":
			err = m.addAccount()
		case "2":
			err = m.switchAccount()
		case "3":
			err = m.editAccount()
		case "4":
			err = m.deleteAccount()
		case "0", "":
			return nil
		default:
			fmt.Fprintln(m.out, "Unknown choice.")
			continue
		}
		if err != nil {
			if isUserError(err) {
				fmt.Fprintf(m.out, "Error: %v\n", err)
				continue
			}
			return err
		}
	}
}

// EnsureAccount prompts for a first account when the store is empty. It is
// called before a batch run so the workflows always have credentials.
func (m *Menu) EnsureAccount() error {
	if m.store.Len() > 0 {
		return nil
	}
	fmt.Fprintln(m.out, "No portal account is configured yet. Add one now.")
	return m.addAccount()
}

func isUserError(err error) bool {
	return errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrDuplicateUsername) ||
		errors.Is(err, ErrLastAccount) ||
		errors.Is(err, ErrNoCurrentAccount)
}

func (m *Menu) printAccounts() {
	ids := m.store.IDs()
	if len(ids) == 0 {
		fmt.Fprintln(m.out, "\nNo accounts configured.")
		return
	}
	fmt.Fprintln(m.out, "\nAccounts:")
	for _, id := range ids {
		acc, err := m.store.Get(id)
		if err != nil {
			continue
		}
		marker := " "
		if id == m.store.CurrentID() {
			marker = "*"
		}
		lastUsed := acc.LastUsed
		if lastUsed == "" {
			lastUsed = "never"
		}
		fmt.Fprintf(m.out, "  %s %s: %s (%s) last used %s\n", marker, id, acc.Name, acc.Username, lastUsed)
	}
}

func (m *Menu) addAccount() error {
	name := m.prompt("Display name: ")
	username := m.prompt("Portal username: ")
	password := m.promptPassword("Portal password: ")
	if username == "" || password == "" {
		fmt.Fprintln(m.out, "Username and password are required.")
		return nil
	}
	id, err := m.store.Add(name, username, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(m.out, "Added %s.\n", id)
	return nil
}

func (m *Menu) switchAccount() error {
	id := m.prompt("Account ID to switch to: ")
	if id == "" {
		return nil
	}
	if err := m.store.Switch(id); err != nil {
		return err
	}
	fmt.Fprintf(m.out, "Now using %s.\n", id)
	return nil
}

func (m *Menu) editAccount() error {
	id := m.prompt("Account ID to edit: ")
	if id == "" {
		return nil
	}
	if _, err := m.store.Get(id); err != nil {
		return err
	}
	fmt.Fprintln(m.out, "Leave a field blank to keep its current value.")
	name := m.prompt("Display name: ")
	username := m.prompt("Portal username: ")
	password := m.promptPassword("Portal password: ")
	if err := m.store.Edit(id, name, username, password); err != nil {
		return err
	}
	fmt.Fprintf(m.out, "Updated %s.\n", id)
	return nil
}

func (m *Menu) deleteAccount() error {
	id := m.prompt("Account ID to delete: ")
	if id == "" {
		return nil
	}
	confirm := m.prompt(fmt.Sprintf("Delete %s? [y/N]: ", id))
	if !strings.EqualFold(confirm, "y") {
		fmt.Fprintln(m.out, "Cancelled.")
		return nil
	}
	if err := m.store.Delete(id); err != nil {
		return err
	}
	fmt.Fprintf(m.out, "Deleted %s.\n", id)
	return nil
}

func (m *Menu) prompt(label string) string {
	fmt.Fprint(m.out, label)
	line, err := m.in.ReadString('\n')
	if err != nil && line == "" {
		return ""
	}
	return strings.TrimSpace(line)
}

// promptPassword reads a password without echo when stdin is a terminal.
// Piped input falls back to a plain line read so scripted runs still work.
func (m *Menu) promptPassword(label string) string {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return m.prompt(label)
	}
	fmt.Fprint(m.out, label)
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(m.out)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(raw))
}
