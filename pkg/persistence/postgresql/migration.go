package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE workspaces (
				id VARCHAR(64) PRIMARY KEY,
				owner VARCHAR(255) NOT NULL,
				name VARCHAR(200) NOT NULL,
				document JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workspaces_owner ON workspaces(owner);
			CREATE INDEX idx_workspaces_created_at ON workspaces(created_at);

			CREATE TABLE automations (
				id VARCHAR(64) PRIMARY KEY,
				workspace_id VARCHAR(64) NOT NULL,
				owner VARCHAR(255) NOT NULL,
				name VARCHAR(200) NOT NULL,
				status VARCHAR(20) NOT NULL CHECK (status IN ('active', 'paused', 'failed', 'completed')),
				document JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				last_executed_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_automations_workspace_id ON automations(workspace_id);
			CREATE INDEX idx_automations_status ON automations(status);
		`,
	}
}
