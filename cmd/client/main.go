package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/yashagw/selopt/internal/server"
)

const (
	DefaultHost = "localhost"
	DefaultPort = "8080"
)

type Client struct {
	conn   net.Conn
	reader *bufio.Reader
	writer *bufio.Writer
}

func NewClient(host, port string) (*Client, error) {
	address := net.JoinHostPort(host, port)
	conn, err := net.Dial("tcp", address)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to server")
	}

	return &Client{
		conn:   conn,
		reader: bufio.NewReader(conn),
		writer: bufio.NewWriter(conn),
	}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// Optimize sends one line of selectivities and waits for the plan.
func (c *Client) Optimize(line string) (*server.Response, error) {
	if _, err := c.writer.WriteString(line + "\n"); err != nil {
		return nil, errors.Wrap(err, "failed to send query")
	}
	if err := c.writer.Flush(); err != nil {
		return nil, errors.Wrap(err, "failed to flush query")
	}

	responseLine, err := c.reader.ReadString('\n')
	if err != nil {
		if err == io.EOF {
			return nil, errors.New("server closed connection")
		}
		return nil, errors.Wrap(err, "failed to read response")
	}

	var response server.Response
	if err := json.Unmarshal([]byte(strings.TrimSpace(responseLine)), &response); err != nil {
		return nil, errors.Wrap(err, "failed to parse response")
	}
	return &response, nil
}

func printResponse(response *server.Response) {
	if response.Error != "" {
		fmt.Printf("error: %s\n\n", response.Error)
		return
	}
	fmt.Print(response.Report)
	fmt.Println()
}

// processLine optimizes one input line and prints the result.
// Returns true if the client should exit (QUIT/EXIT command).
func processLine(line string, client *Client) bool {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return false
	}

	upper := strings.ToUpper(line)
	if upper == "QUIT" || upper == "EXIT" {
		fmt.Println("Goodbye!")
		return true
	}

	response, err := client.Optimize(line)
	if err != nil {
		fmt.Printf("error: %v\n\n", err)
		return false
	}
	printResponse(response)
	return false
}

func main() {
	host := os.Getenv("SELOPT_HOST")
	if host == "" {
		host = DefaultHost
	}

	port := os.Getenv("SELOPT_PORT")
	if port == "" {
		port = DefaultPort
	}

	client, err := NewClient(host, port)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to server: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	fmt.Println("selopt client")
	fmt.Printf("Connected to %s:%s\n", host, port)
	fmt.Println("Enter the selectivities of one query per line, or QUIT to exit")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("selopt> ")
		if !scanner.Scan() {
			break
		}
		if processLine(scanner.Text(), client) {
			break
		}
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
	}
}
